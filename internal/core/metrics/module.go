package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/internal/core/swarm"
)

// Config 指标配置
type Config struct {
	Enable           bool
	Namespace        string
	ListenAddr       string
	SnapshotInterval time.Duration
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	m := cfg.Metrics
	return Config{
		Enable:           m.Enable,
		Namespace:        m.Namespace,
		ListenAddr:       m.ListenAddr,
		SnapshotInterval: m.SnapshotInterval.Duration(),
	}
}

// Params 指标模块依赖参数
type Params struct {
	fx.In

	LC         fx.Lifecycle
	Swarm      *swarm.Swarm
	UnifiedCfg *config.Config `optional:"true"`
}

// Result 指标模块输出
type Result struct {
	fx.Out

	Registry *prometheus.Registry
}

// ProvideRegistry 创建注册表并挂接生命周期
//
// 未启用时返回空注册表；ListenAddr 非空时在 /metrics 上提供 HTTP 导出。
func ProvideRegistry(p Params) (Result, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	reg := prometheus.NewRegistry()

	sl := NewSnapshotLogger(p.Swarm.Control(), nil)
	p.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sl.Start(cfg.SnapshotInterval)
			return nil
		},
		OnStop: func(context.Context) error {
			sl.Stop()
			return nil
		},
	})

	if !cfg.Enable {
		return Result{Registry: reg}, nil
	}
	if err := reg.Register(NewCollector(cfg.Namespace, p.Swarm.Control())); err != nil {
		return Result{}, err
	}
	if cfg.ListenAddr != "" {
		registerHTTP(p.LC, cfg.ListenAddr, reg)
	}
	return Result{Registry: reg}, nil
}

func registerHTTP(lc fx.Lifecycle, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Warn("指标服务异常退出", "error", err)
				}
			}()
			logger.Info("指标服务已启动", "addr", ln.Addr().String())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideRegistry),
	)
}

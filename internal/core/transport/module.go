package transport

import (
	"context"
	"time"

	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/internal/core/transport/memory"
	"github.com/dep2p/go-p2pcore/internal/core/transport/quic"
	"github.com/dep2p/go-p2pcore/internal/core/transport/tcp"
	"github.com/dep2p/go-p2pcore/internal/core/transport/websocket"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
)

var logger = log.Logger("core/transport")

// Config 传输层配置
type Config struct {
	EnableTCP       bool
	EnableQUIC      bool
	EnableWebSocket bool
	EnableMemory    bool

	// DialTimeout 传输层拨号超时（TCP、WebSocket）
	DialTimeout time.Duration

	// QUICIdleTimeout QUIC 空闲超时
	QUICIdleTimeout time.Duration
}

// ConfigFromUnified 从统一配置创建传输配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	t := cfg.Transport
	return Config{
		EnableTCP:       t.EnableTCP,
		EnableQUIC:      t.EnableQUIC,
		EnableWebSocket: t.EnableWebSocket,
		EnableMemory:    t.EnableMemory,
		DialTimeout:     t.DialTimeout.Duration(),
		QUICIdleTimeout: t.QUICIdleTimeout.Duration(),
	}
}

// New 按配置创建传输列表
//
// 顺序固定为 QUIC、TCP、WebSocket、Memory。hub 为 nil 时使用 memory.DefaultHub。
func New(cfg Config, id pkgif.Identity, hub *memory.Hub) ([]pkgif.Transport, error) {
	var transports []pkgif.Transport

	if cfg.EnableQUIC {
		if id == nil {
			return nil, ErrNilIdentity
		}
		q, err := quic.New(id, quic.Config{IdleTimeout: cfg.QUICIdleTimeout})
		if err != nil {
			return nil, err
		}
		transports = append(transports, q)
	}
	if cfg.EnableTCP {
		transports = append(transports, tcp.New(cfg.DialTimeout))
	}
	if cfg.EnableWebSocket {
		transports = append(transports, websocket.New(cfg.DialTimeout))
	}
	if cfg.EnableMemory {
		transports = append(transports, memory.New(hub))
	}

	if len(transports) == 0 {
		return nil, ErrNoTransport
	}
	logger.Debug("传输层已创建", "count", len(transports))
	return transports, nil
}

// CloseAll 并发关闭所有传输
func CloseAll(transports []pkgif.Transport) error {
	var g errgroup.Group
	for _, t := range transports {
		g.Go(t.Close)
	}
	return g.Wait()
}

// ============================================================================
//                              Fx 模块
// ============================================================================

// Params 传输层依赖参数
type Params struct {
	fx.In

	Identity   pkgif.Identity
	Hub        *memory.Hub    `optional:"true"`
	UnifiedCfg *config.Config `optional:"true"`
}

// Result 传输层输出
type Result struct {
	fx.Out

	Transports []pkgif.Transport `name:"transports"`
}

// ProvideTransports 提供传输列表
func ProvideTransports(p Params) (Result, error) {
	ts, err := New(ConfigFromUnified(p.UnifiedCfg), p.Identity, p.Hub)
	if err != nil {
		return Result{}, err
	}
	return Result{Transports: ts}, nil
}

type lifecycleParams struct {
	fx.In

	LC         fx.Lifecycle
	Transports []pkgif.Transport `name:"transports"`
}

func registerLifecycle(p lifecycleParams) {
	p.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return CloseAll(p.Transports)
		},
	})
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransports),
		fx.Invoke(registerLifecycle),
	)
}

package p2pcore

import (
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/internal/core/identity"
	"github.com/dep2p/go-p2pcore/internal/core/metrics"
	"github.com/dep2p/go-p2pcore/internal/core/muxer"
	"github.com/dep2p/go-p2pcore/internal/core/security"
	"github.com/dep2p/go-p2pcore/internal/core/swarm"
	"github.com/dep2p/go-p2pcore/internal/core/transport"
	"github.com/dep2p/go-p2pcore/internal/core/upgrader"
	"github.com/dep2p/go-p2pcore/internal/protocol/ping"
	"github.com/dep2p/go-p2pcore/internal/protocol/reqresp"
	"github.com/dep2p/go-p2pcore/pkg/behaviour"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
)

var fxLogger = log.Logger("p2pcore/fx")

// dummyKey 没有任何行为时占位的键
const dummyKey = "dummy"

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. Identity → Transport → Security → Muxer → Upgrader
//  2. 协议行为（ping、reqresp、用户行为）→ 组合 Behaviour
//  3. Swarm → Metrics
func buildFxApp(o *options, node *Node) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(o.config),

		identity.Module(),
		transport.Module(),
		security.Module(),
		muxer.Module(),
		upgrader.Module(),
	}
	if o.identity != nil {
		modules = append(modules, fx.Supply(fx.Annotated{Name: "preset_identity", Target: o.identity}))
	}
	if o.hub != nil {
		modules = append(modules, fx.Supply(o.hub))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 协议行为（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if o.config.Ping.Enable {
		modules = append(modules, ping.Module())
	}
	if o.config.ReqResp.Enable {
		modules = append(modules, reqresp.Module())
	}
	for _, e := range o.behaviours {
		e := e
		modules = append(modules, fx.Provide(fx.Annotate(
			func() behaviour.Entry { return e },
			fx.ResultTags(`group:"behaviours"`),
		)))
	}
	modules = append(modules, fx.Provide(provideBehaviour))

	// ════════════════════════════════════════════════════════════════════════
	// 4. Swarm 与指标
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		swarm.Module(),
		metrics.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, o.fxOptions...)

	// ════════════════════════════════════════════════════════════════════════
	// 6. Node 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		fx.Invoke(injectNodeComponents(node)),
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.NopLogger,
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// ════════════════════════════════════════════════════════════════════════════
// 行为组合
// ════════════════════════════════════════════════════════════════════════════

type behaviourParams struct {
	fx.In

	Entries []behaviour.Entry `group:"behaviours"`
}

// provideBehaviour 按 Key 排序后组合所有行为
//
// Fx 的 group 顺序不确定，排序保证轮询顺序与 Handler 组合顺序稳定。
func provideBehaviour(p behaviourParams) (pkgif.NetworkBehaviour, error) {
	entries := slices.Clone(p.Entries)
	if len(entries) == 0 {
		fxLogger.Debug("没有启用任何协议行为")
		entries = append(entries, behaviour.Entry{Key: dummyKey, Behaviour: behaviour.Dummy{}})
	}
	slices.SortFunc(entries, func(a, b behaviour.Entry) int {
		return strings.Compare(a.Key, b.Key)
	})

	composed, err := behaviour.Compose(entries...)
	if err != nil {
		return nil, err
	}
	return composed, nil
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	Identity   *identity.Identity
	Swarm      *swarm.Swarm
	Transports []pkgif.Transport `name:"transports"`
	Registry   *prometheus.Registry

	// 可选协议
	Ping    *ping.Behaviour    `optional:"true"`
	ReqResp *reqresp.Behaviour `optional:"true"`
}

// injectNodeComponents 创建 Node 组件注入函数
func injectNodeComponents(node *Node) interface{} {
	return func(params nodeInjectParams) {
		node.identity = params.Identity
		node.swarm = params.Swarm
		node.control = params.Swarm.Control()
		node.transports = params.Transports
		node.registry = params.Registry
		node.ping = params.Ping
		node.reqresp = params.ReqResp
	}
}

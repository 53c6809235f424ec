package ping

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/pkg/behaviour"
)

// Key ping 在组合 Behaviour 中的键
const Key = "ping"

// Params ping 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// ModuleResult ping 模块输出
type ModuleResult struct {
	fx.Out

	Behaviour *Behaviour
	Entry     behaviour.Entry `group:"behaviours"`
}

// ProvideBehaviour 提供 ping 行为并登记到组合中
func ProvideBehaviour(p Params) (ModuleResult, error) {
	b, err := New(ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return ModuleResult{}, err
	}
	return ModuleResult{Behaviour: b, Entry: behaviour.Entry{Key: Key, Behaviour: b}}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("ping",
		fx.Provide(ProvideBehaviour),
	)
}

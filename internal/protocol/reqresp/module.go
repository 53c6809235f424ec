package reqresp

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/pkg/behaviour"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Key 请求/响应在组合 Behaviour 中的键
const Key = "reqresp"

// Params 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result 模块输出
type Result struct {
	fx.Out

	Behaviour *Behaviour
	Entry     behaviour.Entry `group:"behaviours"`
}

// ProvideBehaviour 提供请求/响应行为，并用已知节点填充地址簿
func ProvideBehaviour(p Params) (Result, error) {
	b, err := New(ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return Result{}, err
	}
	if p.UnifiedCfg != nil {
		for _, kp := range p.UnifiedCfg.KnownPeers {
			peer, err := types.ParsePeerID(kp.PeerID)
			if err != nil {
				return Result{}, err
			}
			addrs, err := types.ParseMultiaddrs(kp.Addrs)
			if err != nil {
				return Result{}, err
			}
			for _, a := range addrs {
				b.AddAddress(peer, a)
			}
		}
	}
	return Result{Behaviour: b, Entry: behaviour.Entry{Key: Key, Behaviour: b}}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("reqresp",
		fx.Provide(ProvideBehaviour),
	)
}

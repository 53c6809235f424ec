package swarm

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/config"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
)

// Params Swarm 依赖参数
type Params struct {
	fx.In

	Identity   pkgif.Identity
	Transports []pkgif.Transport `name:"transports"`
	Upgrader   pkgif.Upgrader
	Behaviour  pkgif.NetworkBehaviour
	UnifiedCfg *config.Config `optional:"true"`
}

// ProvideSwarm 提供 Swarm
//
// Swarm 的驱动循环与关闭由根包的 Node 负责。
func ProvideSwarm(p Params) (*Swarm, error) {
	return New(
		ConfigFromUnified(p.UnifiedCfg),
		p.Identity.PeerID(),
		p.Transports,
		p.Upgrader,
		p.Behaviour,
	)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("swarm",
		fx.Provide(ProvideSwarm),
	)
}

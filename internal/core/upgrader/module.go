package upgrader

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/config"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
)

// Params Upgrader 依赖参数
type Params struct {
	fx.In

	Identity           pkgif.Identity
	SecurityTransports []pkgif.SecureTransport `name:"security_transports"`
	StreamMuxers       []pkgif.StreamMuxer     `name:"stream_muxers"`
	UnifiedCfg         *config.Config          `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("upgrader",
		fx.Provide(
			ProvideUpgrader,
		),
	)
}

// ConfigFromUnified 从统一配置创建 Upgrader 配置
func ConfigFromUnified(cfg *config.Config, security []pkgif.SecureTransport, muxers []pkgif.StreamMuxer) Config {
	c := Config{
		SecurityTransports: security,
		StreamMuxers:       muxers,
	}
	if cfg != nil {
		c.HandshakeTimeout = cfg.Security.HandshakeTimeout.Duration()
	}
	return c
}

// ProvideUpgrader 提供 Upgrader（依赖注入）
func ProvideUpgrader(params Params) (pkgif.Upgrader, error) {
	cfg := ConfigFromUnified(params.UnifiedCfg, params.SecurityTransports, params.StreamMuxers)
	return New(params.Identity, cfg)
}

package identity

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
)

var logger = log.Logger("core/identity")

// Config 身份模块配置
type Config struct {
	KeyFile      string
	AutoGenerate bool
}

// ConfigFromUnified 从统一配置创建身份配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		d := config.DefaultIdentityConfig()
		return Config{KeyFile: d.KeyFile, AutoGenerate: d.AutoGenerate}
	}
	return Config{KeyFile: cfg.Identity.KeyFile, AutoGenerate: cfg.Identity.AutoGenerate}
}

// Params 模块输入依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`

	// Preset 直接注入的身份，优先于密钥文件
	Preset *Identity `name:"preset_identity" optional:"true"`
}

// Result 模块输出
type Result struct {
	fx.Out

	Identity interfaces.Identity
	Local    *Identity
}

// ProvideIdentity 提供本地身份
//
// 优先级：注入的身份 > 密钥文件 > 自动生成。
func ProvideIdentity(p Params) (Result, error) {
	if p.Preset != nil {
		return Result{Identity: p.Preset, Local: p.Preset}, nil
	}

	cfg := ConfigFromUnified(p.UnifiedCfg)
	id, generated, err := LoadOrGenerate(cfg.KeyFile, cfg.AutoGenerate)
	if err != nil {
		return Result{}, err
	}
	if generated {
		logger.Info("已生成新身份", "peer", log.TruncateID(id.PeerID().String(), 8), "keyFile", cfg.KeyFile)
	} else {
		logger.Info("已加载身份", "peer", log.TruncateID(id.PeerID().String(), 8), "keyFile", cfg.KeyFile)
	}
	return Result{Identity: id, Local: id}, nil
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideIdentity),
	)
}

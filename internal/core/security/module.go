// Package security 提供安全传输的 Fx 装配
//
// 协商时按 Noise、Plaintext 的顺序提议；Plaintext 只用于测试与本地调试。
package security

import (
	"errors"

	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/internal/core/security/noise"
	"github.com/dep2p/go-p2pcore/internal/core/security/plaintext"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
)

var logger = log.Logger("core/security")

// ErrNoSecurityTransport 没有启用任何安全传输
var ErrNoSecurityTransport = errors.New("no security transport enabled")

// Params 安全传输依赖参数
type Params struct {
	fx.In

	Identity   pkgif.Identity
	UnifiedCfg *config.Config `optional:"true"`
}

// Result 安全传输输出
type Result struct {
	fx.Out

	SecurityTransports []pkgif.SecureTransport `name:"security_transports"`
}

// New 按配置创建安全传输列表
func New(cfg config.SecurityConfig, id pkgif.Identity) ([]pkgif.SecureTransport, error) {
	var out []pkgif.SecureTransport

	if cfg.EnableNoise {
		n, err := noise.New(id)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if cfg.EnablePlaintext {
		p, err := plaintext.New(id)
		if err != nil {
			return nil, err
		}
		logger.Warn("已启用明文安全传输，连接内容不加密")
		out = append(out, p)
	}

	if len(out) == 0 {
		return nil, ErrNoSecurityTransport
	}
	return out, nil
}

// ProvideSecurityTransports 提供安全传输列表
func ProvideSecurityTransports(p Params) (Result, error) {
	cfg := config.DefaultSecurityConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Security
	}
	ts, err := New(cfg, p.Identity)
	if err != nil {
		return Result{}, err
	}
	return Result{SecurityTransports: ts}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("security",
		fx.Provide(ProvideSecurityTransports),
	)
}

package p2pcore

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/internal/core/identity"
	"github.com/dep2p/go-p2pcore/internal/core/transport/memory"
	"github.com/dep2p/go-p2pcore/pkg/behaviour"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// config 统一配置，默认 config.NewConfig()
	config *config.Config

	// identity 直接注入的身份，优先于密钥文件
	identity *identity.Identity

	// hub 进程内传输的交换中心
	hub *memory.Hub

	// behaviours 用户自定义行为
	behaviours []behaviour.Entry

	// setupLog 是否按配置重建全局日志
	setupLog bool

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// WithConfig 使用完整配置替换默认配置
//
// 应放在其他修改配置的选项之前。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidOption)
		}
		o.config = cfg.Clone()
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithPreset 应用预设（desktop/server/minimal）
func WithPreset(name string) Option {
	return func(o *options) error {
		return config.ApplyPreset(o.config, name)
	}
}

// WithIdentity 使用指定身份
func WithIdentity(id *identity.Identity) Option {
	return func(o *options) error {
		if id == nil {
			return fmt.Errorf("%w: nil identity", ErrInvalidOption)
		}
		o.identity = id
		return nil
	}
}

// WithIdentityFromFile 从密钥文件加载身份，文件不存在时生成并保存
func WithIdentityFromFile(path string) Option {
	return func(o *options) error {
		o.config.Identity.KeyFile = path
		o.config.Identity.AutoGenerate = true
		return nil
	}
}

// WithListenAddrs 设置监听地址（替换配置中的地址）
//
// 示例：
//
//	p2pcore.WithListenAddrs("/ip4/0.0.0.0/tcp/4001", "/ip4/0.0.0.0/udp/4001/quic-v1")
func WithListenAddrs(addrs ...string) Option {
	return func(o *options) error {
		o.config.Transport.ListenAddrs = append([]string(nil), addrs...)
		return nil
	}
}

// WithMemoryTransport 启用进程内传输并使用给定的交换中心
//
// hub 为 nil 时使用 memory.DefaultHub。
func WithMemoryTransport(hub *memory.Hub) Option {
	return func(o *options) error {
		o.config.Transport.EnableMemory = true
		o.hub = hub
		return nil
	}
}

// WithKnownPeers 启动时拨号的节点
func WithKnownPeers(peers ...config.KnownPeer) Option {
	return func(o *options) error {
		o.config.KnownPeers = append(o.config.KnownPeers, peers...)
		return nil
	}
}

// WithPing 启用或禁用 ping
func WithPing(enable bool) Option {
	return func(o *options) error {
		o.config.Ping.Enable = enable
		return nil
	}
}

// WithReqResp 启用或禁用请求/响应协议
//
// protocols 非空时替换协议列表。
func WithReqResp(enable bool, protocols ...string) Option {
	return func(o *options) error {
		o.config.ReqResp.Enable = enable
		if len(protocols) > 0 {
			o.config.ReqResp.Protocols = append([]string(nil), protocols...)
		}
		return nil
	}
}

// WithMetrics 启用 Prometheus 指标；addr 非空时在 addr/metrics 上导出
func WithMetrics(addr string) Option {
	return func(o *options) error {
		o.config.Metrics.Enable = true
		o.config.Metrics.ListenAddr = addr
		return nil
	}
}

// WithBehaviour 添加自定义行为
//
// key 在组合中必须唯一，ping 与 reqresp 已被占用。
func WithBehaviour(key string, b pkgif.NetworkBehaviour) Option {
	return func(o *options) error {
		if key == "" || b == nil {
			return fmt.Errorf("%w: behaviour needs key and value", ErrInvalidOption)
		}
		o.behaviours = append(o.behaviours, behaviour.Entry{Key: key, Behaviour: b})
		return nil
	}
}

// WithLogSetup 按配置中的 log 段重建全局日志
func WithLogSetup() Option {
	return func(o *options) error {
		o.setupLog = true
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}

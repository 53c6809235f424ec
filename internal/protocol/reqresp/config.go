package reqresp

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Config 请求/响应配置
type Config struct {
	// Protocols 支持的协议，按优先级排列
	Protocols []types.ProtocolID

	// RequestTimeout 单个请求超时（出站和入站分别计算）
	RequestTimeout time.Duration

	// MaxConcurrentStreams 每条连接同时进行的子流上限
	MaxConcurrentStreams int

	// MaxMessageSize 单帧上限（字节）
	MaxMessageSize int

	// AddressBookSize 地址簿条目上限
	AddressBookSize int

	// QueueSize 事件队列、动作队列与待发送请求的上限
	QueueSize int
}

// ConfigFromUnified 从统一配置创建
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	r := cfg.ReqResp
	protos := make([]types.ProtocolID, 0, len(r.Protocols))
	for _, p := range r.Protocols {
		protos = append(protos, types.ProtocolID(p))
	}
	return Config{
		Protocols:            protos,
		RequestTimeout:       r.RequestTimeout.Duration(),
		MaxConcurrentStreams: r.MaxConcurrentStreams,
		MaxMessageSize:       r.MaxMessageSize,
		AddressBookSize:      r.AddressBookSize,
		QueueSize:            cfg.Swarm.EventQueueSize,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if len(c.Protocols) == 0 {
		return fmt.Errorf("%w: no protocols", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxConcurrentStreams <= 0 || c.MaxMessageSize <= 0 || c.AddressBookSize <= 0 || c.QueueSize <= 0 {
		return fmt.Errorf("%w: limits must be positive", ErrInvalidConfig)
	}
	return nil
}

// Option 行为选项
type Option func(*Behaviour)

// WithClock 设置时钟
func WithClock(clk clock.Clock) Option {
	return func(b *Behaviour) {
		if clk != nil {
			b.clock = clk
		}
	}
}

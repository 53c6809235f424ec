package pool

import (
	"fmt"
	"time"

	"github.com/dep2p/go-p2pcore/config"
)

// Config 连接池配置
//
// 没有默认值：所有容量与上限都必须显式给出且为正，部署相关的数值
// 来自 config 包的预设。
type Config struct {
	// MaxConnections 已建立与 pending 连接的总上限
	MaxConnections int

	// MaxConnectionsPerPeer 每个节点已建立连接的上限
	MaxConnectionsPerPeer int

	// MaxPendingIncoming 同时升级中的入站连接上限
	MaxPendingIncoming int

	// MaxPendingOutgoing 同时进行中的出站拨号上限
	MaxPendingOutgoing int

	// EventQueueSize 事件队列容量
	EventQueueSize int

	// CommandQueueSize 每条连接的命令队列容量
	CommandQueueSize int

	// MaxNegotiatingInboundStreams 每条连接同时协商中的入站子流上限
	MaxNegotiatingInboundStreams int

	// MaxNegotiatingOutboundStreams 每条连接同时协商中的出站子流上限
	MaxNegotiatingOutboundStreams int

	// SubstreamUpgradeTimeout 子流打开与协议协商的超时
	SubstreamUpgradeTimeout time.Duration

	// IdleConnectionTimeout 所有 Handler 空闲后连接的保持时间
	IdleConnectionTimeout time.Duration

	// GracefulCloseTimeout 关闭时等待 Handler 排空的上限
	GracefulCloseTimeout time.Duration
}

// ConfigFromUnified 从统一配置创建
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	c := cfg.Pool
	return Config{
		MaxConnections:                c.MaxConnections,
		MaxConnectionsPerPeer:         c.MaxConnectionsPerPeer,
		MaxPendingIncoming:            c.MaxPendingIncoming,
		MaxPendingOutgoing:            c.MaxPendingOutgoing,
		EventQueueSize:                c.EventQueueSize,
		CommandQueueSize:              c.CommandQueueSize,
		MaxNegotiatingInboundStreams:  c.MaxNegotiatingInboundStreams,
		MaxNegotiatingOutboundStreams: c.MaxNegotiatingOutboundStreams,
		SubstreamUpgradeTimeout:       c.SubstreamUpgradeTimeout.Duration(),
		IdleConnectionTimeout:         c.IdleConnectionTimeout.Duration(),
		GracefulCloseTimeout:          c.GracefulCloseTimeout.Duration(),
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	ints := []struct {
		name string
		v    int
	}{
		{"MaxConnections", c.MaxConnections},
		{"MaxConnectionsPerPeer", c.MaxConnectionsPerPeer},
		{"MaxPendingIncoming", c.MaxPendingIncoming},
		{"MaxPendingOutgoing", c.MaxPendingOutgoing},
		{"EventQueueSize", c.EventQueueSize},
		{"CommandQueueSize", c.CommandQueueSize},
		{"MaxNegotiatingInboundStreams", c.MaxNegotiatingInboundStreams},
		{"MaxNegotiatingOutboundStreams", c.MaxNegotiatingOutboundStreams},
	}
	for _, f := range ints {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, f.name, f.v)
		}
	}

	durations := []struct {
		name string
		v    time.Duration
	}{
		{"SubstreamUpgradeTimeout", c.SubstreamUpgradeTimeout},
		{"IdleConnectionTimeout", c.IdleConnectionTimeout},
		{"GracefulCloseTimeout", c.GracefulCloseTimeout},
	}
	for _, f := range durations {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, f.name, f.v)
		}
	}

	if c.MaxConnectionsPerPeer > c.MaxConnections {
		return fmt.Errorf("%w: MaxConnectionsPerPeer exceeds MaxConnections", ErrInvalidConfig)
	}
	return nil
}

package config

import "time"

// PoolConfig 连接池配置
//
// 所有容量与上限都必须为正，连接池本身不提供默认值。
type PoolConfig struct {
	// MaxConnections 已建立与 pending 连接的总上限
	MaxConnections int `json:"max_connections"`

	// MaxConnectionsPerPeer 每个节点的连接上限
	MaxConnectionsPerPeer int `json:"max_connections_per_peer"`

	// MaxPendingIncoming 同时升级中的入站连接上限
	MaxPendingIncoming int `json:"max_pending_incoming"`

	// MaxPendingOutgoing 同时进行中的出站拨号上限
	MaxPendingOutgoing int `json:"max_pending_outgoing"`

	// EventQueueSize Pool 事件队列容量
	EventQueueSize int `json:"event_queue_size"`

	// CommandQueueSize 每条连接的命令队列容量
	CommandQueueSize int `json:"command_queue_size"`

	// MaxNegotiatingInboundStreams 每条连接同时协商中的入站子流上限
	MaxNegotiatingInboundStreams int `json:"max_negotiating_inbound_streams"`

	// MaxNegotiatingOutboundStreams 每条连接同时协商中的出站子流上限
	MaxNegotiatingOutboundStreams int `json:"max_negotiating_outbound_streams"`

	// SubstreamUpgradeTimeout 子流协议协商超时
	SubstreamUpgradeTimeout Duration `json:"substream_upgrade_timeout"`

	// IdleConnectionTimeout 所有处理器空闲后的保持时间
	IdleConnectionTimeout Duration `json:"idle_connection_timeout"`

	// GracefulCloseTimeout 关闭时等待处理器排空的上限
	GracefulCloseTimeout Duration `json:"graceful_close_timeout"`
}

// DefaultPoolConfig 默认连接池配置
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConnections:                256,
		MaxConnectionsPerPeer:         2,
		MaxPendingIncoming:            32,
		MaxPendingOutgoing:            32,
		EventQueueSize:                256,
		CommandQueueSize:              32,
		MaxNegotiatingInboundStreams:  128,
		MaxNegotiatingOutboundStreams: 16,
		SubstreamUpgradeTimeout:       Duration(10 * time.Second),
		IdleConnectionTimeout:         Duration(30 * time.Second),
		GracefulCloseTimeout:          Duration(5 * time.Second),
	}
}

// Validate 验证连接池配置
func (c PoolConfig) Validate() error {
	checks := []struct {
		field string
		v     int
	}{
		{"pool.max_connections", c.MaxConnections},
		{"pool.max_connections_per_peer", c.MaxConnectionsPerPeer},
		{"pool.max_pending_incoming", c.MaxPendingIncoming},
		{"pool.max_pending_outgoing", c.MaxPendingOutgoing},
		{"pool.event_queue_size", c.EventQueueSize},
		{"pool.command_queue_size", c.CommandQueueSize},
		{"pool.max_negotiating_inbound_streams", c.MaxNegotiatingInboundStreams},
		{"pool.max_negotiating_outbound_streams", c.MaxNegotiatingOutboundStreams},
	}
	for _, ch := range checks {
		if err := positive(ch.field, ch.v); err != nil {
			return err
		}
	}
	if c.MaxConnectionsPerPeer > c.MaxConnections {
		return &FieldError{Field: "pool.max_connections_per_peer", Reason: "exceeds max_connections"}
	}
	if err := positiveDuration("pool.substream_upgrade_timeout", c.SubstreamUpgradeTimeout); err != nil {
		return err
	}
	if err := positiveDuration("pool.idle_connection_timeout", c.IdleConnectionTimeout); err != nil {
		return err
	}
	return positiveDuration("pool.graceful_close_timeout", c.GracefulCloseTimeout)
}

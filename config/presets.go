package config

import (
	"fmt"
	"time"
)

// 预设名称
const (
	PresetDesktop = "desktop"
	PresetServer  = "server"
	PresetMinimal = "minimal"
)

// NewServerConfig 服务器预设：更大的连接与队列容量
func NewServerConfig() *Config {
	cfg := NewConfig()
	_ = applyServerPreset(cfg)
	return cfg
}

// NewMinimalConfig 最小预设：单一 TCP 传输、较小的容量，不启用 ping
func NewMinimalConfig() *Config {
	cfg := NewConfig()
	_ = applyMinimalPreset(cfg)
	return cfg
}

// ApplyPreset 把预设应用到现有配置
//
// 支持的预设：desktop、server、minimal；空字符串不做任何修改。
func ApplyPreset(cfg *Config, name string) error {
	if cfg == nil {
		return ErrNilConfig
	}
	switch name {
	case "":
		return nil
	case PresetDesktop:
		return applyDesktopPreset(cfg)
	case PresetServer:
		return applyServerPreset(cfg)
	case PresetMinimal:
		return applyMinimalPreset(cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
}

// IsValidPreset 检查预设名是否有效
func IsValidPreset(name string) bool {
	switch name {
	case PresetDesktop, PresetServer, PresetMinimal:
		return true
	}
	return false
}

func applyDesktopPreset(cfg *Config) error {
	cfg.Pool = DefaultPoolConfig()
	cfg.Swarm = DefaultSwarmConfig()
	return nil
}

func applyServerPreset(cfg *Config) error {
	cfg.Pool.MaxConnections = 4096
	cfg.Pool.MaxConnectionsPerPeer = 4
	cfg.Pool.MaxPendingIncoming = 256
	cfg.Pool.MaxPendingOutgoing = 128
	cfg.Pool.EventQueueSize = 2048
	cfg.Pool.CommandQueueSize = 128
	cfg.Pool.IdleConnectionTimeout = Duration(2 * time.Minute)

	cfg.Swarm.PollBudget = 256
	cfg.Swarm.EventQueueSize = 2048
	cfg.Swarm.ControlQueueSize = 1024
	cfg.Swarm.InboundQueueSize = 512
	cfg.Swarm.AcceptRate = 1000
	cfg.Swarm.AcceptBurst = 256

	cfg.Muxer.AcceptBacklog = 1024
	cfg.Metrics.Enable = true
	return nil
}

func applyMinimalPreset(cfg *Config) error {
	cfg.Transport.EnableQUIC = false
	cfg.Transport.EnableWebSocket = false
	cfg.Transport.ListenAddrs = []string{"/ip4/127.0.0.1/tcp/0"}

	cfg.Pool.MaxConnections = 16
	cfg.Pool.MaxConnectionsPerPeer = 1
	cfg.Pool.MaxPendingIncoming = 4
	cfg.Pool.MaxPendingOutgoing = 4
	cfg.Pool.EventQueueSize = 32
	cfg.Pool.CommandQueueSize = 8
	cfg.Pool.MaxNegotiatingInboundStreams = 16
	cfg.Pool.MaxNegotiatingOutboundStreams = 4

	cfg.Swarm.PollBudget = 16
	cfg.Swarm.EventQueueSize = 32
	cfg.Swarm.ControlQueueSize = 16
	cfg.Swarm.InboundQueueSize = 8
	cfg.Swarm.AcceptRate = 10
	cfg.Swarm.AcceptBurst = 4

	cfg.Ping.Enable = false
	cfg.Metrics.Enable = false
	return nil
}

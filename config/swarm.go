package config

// SwarmConfig Swarm 驱动循环配置
type SwarmConfig struct {
	// PollBudget 单次 Poll 调用内最多执行的有进展周期数
	PollBudget int `json:"poll_budget"`

	// EventQueueSize 交给嵌入方的事件队列容量
	EventQueueSize int `json:"event_queue_size"`

	// ControlQueueSize 跨 goroutine 控制命令队列容量
	ControlQueueSize int `json:"control_queue_size"`

	// InboundQueueSize 监听器已接受、尚未交给连接池的连接队列容量
	InboundQueueSize int `json:"inbound_queue_size"`

	// AcceptRate 每个监听器每秒接受的连接数上限
	AcceptRate float64 `json:"accept_rate"`

	// AcceptBurst 接受速率的突发容量
	AcceptBurst int `json:"accept_burst"`
}

// DefaultSwarmConfig 默认 Swarm 配置
func DefaultSwarmConfig() SwarmConfig {
	return SwarmConfig{
		PollBudget:       64,
		EventQueueSize:   256,
		ControlQueueSize: 128,
		InboundQueueSize: 64,
		AcceptRate:       100,
		AcceptBurst:      32,
	}
}

// Validate 验证 Swarm 配置
func (c SwarmConfig) Validate() error {
	if err := positive("swarm.poll_budget", c.PollBudget); err != nil {
		return err
	}
	if err := positive("swarm.event_queue_size", c.EventQueueSize); err != nil {
		return err
	}
	if err := positive("swarm.control_queue_size", c.ControlQueueSize); err != nil {
		return err
	}
	if err := positive("swarm.inbound_queue_size", c.InboundQueueSize); err != nil {
		return err
	}
	if c.AcceptRate <= 0 {
		return &FieldError{Field: "swarm.accept_rate", Reason: "must be positive"}
	}
	return positive("swarm.accept_burst", c.AcceptBurst)
}

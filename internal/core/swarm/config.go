package swarm

import (
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-p2pcore/config"
	"github.com/dep2p/go-p2pcore/internal/core/pool"
)

// Config Swarm 配置
//
// 与连接池一样没有默认值。
type Config struct {
	// PollBudget 单次 Poll 内最多执行的有进展周期数
	PollBudget int

	// EventQueueSize 交给嵌入方的事件队列容量
	EventQueueSize int

	// ControlQueueSize 跨 goroutine 控制命令队列容量
	ControlQueueSize int

	// InboundQueueSize 监听器已接受、尚未交给连接池的连接队列容量
	InboundQueueSize int

	// AcceptRate 每个监听器每秒接受的连接数上限
	AcceptRate float64

	// AcceptBurst 接受速率的突发容量
	AcceptBurst int

	// Pool 连接池配置
	Pool pool.Config
}

// ConfigFromUnified 从统一配置创建
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	s := cfg.Swarm
	return Config{
		PollBudget:       s.PollBudget,
		EventQueueSize:   s.EventQueueSize,
		ControlQueueSize: s.ControlQueueSize,
		InboundQueueSize: s.InboundQueueSize,
		AcceptRate:       s.AcceptRate,
		AcceptBurst:      s.AcceptBurst,
		Pool:             pool.ConfigFromUnified(cfg),
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	ints := []struct {
		name string
		v    int
	}{
		{"PollBudget", c.PollBudget},
		{"EventQueueSize", c.EventQueueSize},
		{"ControlQueueSize", c.ControlQueueSize},
		{"InboundQueueSize", c.InboundQueueSize},
		{"AcceptBurst", c.AcceptBurst},
	}
	for _, f := range ints {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, f.name, f.v)
		}
	}
	if c.AcceptRate <= 0 {
		return fmt.Errorf("%w: AcceptRate must be positive", ErrInvalidConfig)
	}
	return c.Pool.Validate()
}

// ============================================================================
//                              选项
// ============================================================================

// Option Swarm 选项函数
type Option func(*Swarm)

// WithClock 设置时钟（测试中使用 clock.NewMock）
func WithClock(clk clock.Clock) Option {
	return func(s *Swarm) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithInstanceID 指定实例标识，默认随机生成
func WithInstanceID(id string) Option {
	return func(s *Swarm) {
		if id != "" {
			s.instanceID = id
		}
	}
}

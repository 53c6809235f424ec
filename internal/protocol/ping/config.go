package ping

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-p2pcore/config"
)

// Config ping 配置
type Config struct {
	// Interval 两次 ping 之间的间隔
	Interval time.Duration

	// Timeout 单次 ping 超时
	Timeout time.Duration

	// EventQueueSize 待交给嵌入方的事件上限，超出时丢弃最旧的
	EventQueueSize int
}

// ConfigFromUnified 从统一配置创建
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		Interval:       cfg.Ping.Interval.Duration(),
		Timeout:        cfg.Ping.Timeout.Duration(),
		EventQueueSize: cfg.Swarm.EventQueueSize,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.Interval <= 0 || c.Timeout <= 0 {
		return fmt.Errorf("%w: interval and timeout must be positive", ErrInvalidConfig)
	}
	if c.EventQueueSize <= 0 {
		return fmt.Errorf("%w: event queue size must be positive", ErrInvalidConfig)
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

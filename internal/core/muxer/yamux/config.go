package yamux

import (
	"io"
	"time"

	"github.com/hashicorp/yamux"

	"github.com/dep2p/go-p2pcore/config"
)

// Config 多路复用配置
type Config struct {
	AcceptBacklog          int
	EnableKeepAlive        bool
	KeepAliveInterval      time.Duration
	ConnectionWriteTimeout time.Duration
	MaxStreamWindowSize    uint32
}

// ConfigFromUnified 从统一配置创建
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	m := cfg.Muxer
	return Config{
		AcceptBacklog:          m.AcceptBacklog,
		EnableKeepAlive:        m.EnableKeepAlive,
		KeepAliveInterval:      m.KeepAliveInterval.Duration(),
		ConnectionWriteTimeout: m.ConnectionWriteTimeout.Duration(),
		MaxStreamWindowSize:    m.MaxStreamWindowSize,
	}
}

// toYamux 转换为 yamux 配置，零值字段沿用 yamux 默认值
func (c Config) toYamux() *yamux.Config {
	yc := yamux.DefaultConfig()
	yc.LogOutput = io.Discard
	yc.EnableKeepAlive = c.EnableKeepAlive
	if c.AcceptBacklog > 0 {
		yc.AcceptBacklog = c.AcceptBacklog
	}
	if c.KeepAliveInterval > 0 {
		yc.KeepAliveInterval = c.KeepAliveInterval
	}
	if c.ConnectionWriteTimeout > 0 {
		yc.ConnectionWriteTimeout = c.ConnectionWriteTimeout
	}
	if c.MaxStreamWindowSize > 0 {
		yc.MaxStreamWindowSize = c.MaxStreamWindowSize
	}
	return yc
}

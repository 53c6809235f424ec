package config

import "time"

// MuxerConfig 多路复用配置（yamux）
type MuxerConfig struct {
	// AcceptBacklog 未被接受的入站流上限
	AcceptBacklog int `json:"accept_backlog"`

	// EnableKeepAlive 启用 yamux 心跳
	EnableKeepAlive bool `json:"enable_keep_alive"`

	// KeepAliveInterval 心跳间隔
	KeepAliveInterval Duration `json:"keep_alive_interval"`

	// ConnectionWriteTimeout 写超时
	ConnectionWriteTimeout Duration `json:"connection_write_timeout"`

	// MaxStreamWindowSize 单流最大接收窗口（字节）
	MaxStreamWindowSize uint32 `json:"max_stream_window_size"`
}

// DefaultMuxerConfig 默认多路复用配置
func DefaultMuxerConfig() MuxerConfig {
	return MuxerConfig{
		AcceptBacklog:          256,
		EnableKeepAlive:        true,
		KeepAliveInterval:      Duration(30 * time.Second),
		ConnectionWriteTimeout: Duration(10 * time.Second),
		MaxStreamWindowSize:    16 << 20,
	}
}

// Validate 验证多路复用配置
func (c MuxerConfig) Validate() error {
	if err := positive("muxer.accept_backlog", c.AcceptBacklog); err != nil {
		return err
	}
	if c.EnableKeepAlive {
		if err := positiveDuration("muxer.keep_alive_interval", c.KeepAliveInterval); err != nil {
			return err
		}
	}
	if err := positiveDuration("muxer.connection_write_timeout", c.ConnectionWriteTimeout); err != nil {
		return err
	}
	// yamux 初始窗口为 256KiB，最大窗口不能更小
	if c.MaxStreamWindowSize < 256*1024 {
		return &FieldError{Field: "muxer.max_stream_window_size", Reason: "must be at least 256KiB"}
	}
	return nil
}

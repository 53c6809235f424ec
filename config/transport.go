package config

import "time"

// TransportConfig 传输层配置
type TransportConfig struct {
	// EnableTCP 启用 TCP
	EnableTCP bool `json:"enable_tcp"`

	// EnableQUIC 启用 QUIC（自带加密和多路复用）
	EnableQUIC bool `json:"enable_quic"`

	// EnableWebSocket 启用 WebSocket
	EnableWebSocket bool `json:"enable_websocket"`

	// EnableMemory 启用进程内传输（测试与嵌入场景）
	EnableMemory bool `json:"enable_memory"`

	// ListenAddrs 启动时监听的地址
	ListenAddrs []string `json:"listen_addrs"`

	// DialTimeout 单个地址的传输层拨号超时
	DialTimeout Duration `json:"dial_timeout"`

	// QUICIdleTimeout QUIC 连接空闲超时
	QUICIdleTimeout Duration `json:"quic_idle_timeout"`
}

// DefaultTransportConfig 默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		EnableTCP:       true,
		EnableQUIC:      true,
		EnableWebSocket: false,
		EnableMemory:    false,
		ListenAddrs: []string{
			"/ip4/0.0.0.0/tcp/0",
			"/ip4/0.0.0.0/udp/0/quic-v1",
		},
		DialTimeout:     Duration(10 * time.Second),
		QUICIdleTimeout: Duration(30 * time.Second),
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if !c.EnableTCP && !c.EnableQUIC && !c.EnableWebSocket && !c.EnableMemory {
		return &FieldError{Field: "transport", Reason: "at least one transport must be enabled"}
	}
	if err := positiveDuration("transport.dial_timeout", c.DialTimeout); err != nil {
		return err
	}
	if c.EnableQUIC {
		return positiveDuration("transport.quic_idle_timeout", c.QUICIdleTimeout)
	}
	return nil
}

package config

import "time"

// PingConfig 存活检测协议配置
type PingConfig struct {
	// Enable 启用 ping
	Enable bool `json:"enable"`

	// Interval 两次 ping 之间的间隔
	Interval Duration `json:"interval"`

	// Timeout 单次 ping 超时
	Timeout Duration `json:"timeout"`
}

// DefaultPingConfig 默认 ping 配置
func DefaultPingConfig() PingConfig {
	return PingConfig{
		Enable:   true,
		Interval: Duration(15 * time.Second),
		Timeout:  Duration(20 * time.Second),
	}
}

// Validate 验证 ping 配置
func (c PingConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if err := positiveDuration("ping.interval", c.Interval); err != nil {
		return err
	}
	return positiveDuration("ping.timeout", c.Timeout)
}

// ReqRespConfig 请求/响应协议配置
type ReqRespConfig struct {
	// Enable 启用请求/响应协议
	Enable bool `json:"enable"`

	// Protocols 支持的协议 ID
	Protocols []string `json:"protocols"`

	// RequestTimeout 单个请求超时
	RequestTimeout Duration `json:"request_timeout"`

	// MaxConcurrentStreams 每条连接同时进行的请求上限
	MaxConcurrentStreams int `json:"max_concurrent_streams"`

	// MaxMessageSize 单条消息上限（字节）
	MaxMessageSize int `json:"max_message_size"`

	// AddressBookSize 地址簿缓存条目上限
	AddressBookSize int `json:"address_book_size"`
}

// DefaultReqRespConfig 默认请求/响应配置
func DefaultReqRespConfig() ReqRespConfig {
	return ReqRespConfig{
		Enable:               true,
		Protocols:            []string{"/p2pcore/echo/1.0.0"},
		RequestTimeout:       Duration(10 * time.Second),
		MaxConcurrentStreams: 64,
		MaxMessageSize:       1 << 20,
		AddressBookSize:      1024,
	}
}

// Validate 验证请求/响应配置
func (c ReqRespConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if len(c.Protocols) == 0 {
		return &FieldError{Field: "reqresp.protocols", Reason: "must not be empty"}
	}
	if err := positiveDuration("reqresp.request_timeout", c.RequestTimeout); err != nil {
		return err
	}
	if err := positive("reqresp.max_concurrent_streams", c.MaxConcurrentStreams); err != nil {
		return err
	}
	if err := positive("reqresp.max_message_size", c.MaxMessageSize); err != nil {
		return err
	}
	return positive("reqresp.address_book_size", c.AddressBookSize)
}

package reqresp

import "errors"

var (
	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("reqresp: invalid config")

	// ErrUnsupported 对端不支持任何请求协议
	ErrUnsupported = errors.New("reqresp: protocol not supported by peer")

	// ErrDialFailure 拨号失败，请求未发出
	ErrDialFailure = errors.New("reqresp: dial failure")

	// ErrIDMismatch 响应的 ID 与请求不符
	ErrIDMismatch = errors.New("reqresp: response id mismatch")

	// ErrMalformedFrame 帧无法解析
	ErrMalformedFrame = errors.New("reqresp: malformed frame")

	// ErrTooManyStreams 超出每条连接的并发子流上限
	ErrTooManyStreams = errors.New("reqresp: too many concurrent streams")

	// ErrQueueFull 待发送请求或动作队列已满
	ErrQueueFull = errors.New("reqresp: queue full")

	// ErrNotConnected 响应通道对应的连接已关闭
	ErrNotConnected = errors.New("reqresp: connection not available")
)

package ping

import "errors"

var (
	// ErrUnsupported 对端不支持 ping 协议
	ErrUnsupported = errors.New("ping: protocol not supported by peer")

	// ErrMismatch 对端返回的数据与发送的不一致
	ErrMismatch = errors.New("ping: payload mismatch")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("ping: invalid config")
)

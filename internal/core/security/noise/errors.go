package noise

import "errors"

var (
	// ErrNilIdentity 身份为空
	ErrNilIdentity = errors.New("noise: identity is nil")

	// ErrInvalidPayload 握手 payload 格式错误
	ErrInvalidPayload = errors.New("noise: invalid handshake payload")

	// ErrInvalidSignature 静态公钥未绑定到身份公钥
	ErrInvalidSignature = errors.New("noise: invalid static key signature")
)

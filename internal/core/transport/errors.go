package transport

import "errors"

var (
	// ErrNoTransport 没有启用任何传输
	ErrNoTransport = errors.New("transport: no transport enabled")

	// ErrNilIdentity QUIC 需要身份
	ErrNilIdentity = errors.New("transport: identity is required for quic")
)

package quic

import "errors"

var (
	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("quic: transport closed")

	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("quic: listener closed")

	// ErrUnsupportedAddr 不是 QUIC 地址
	ErrUnsupportedAddr = errors.New("quic: unsupported address")

	// ErrNoCertificate 对端未提供证书
	ErrNoCertificate = errors.New("quic: peer presented no certificate")

	// ErrInvalidCertificate 对端证书无效
	ErrInvalidCertificate = errors.New("quic: invalid peer certificate")
)

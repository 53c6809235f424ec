package memory

import "errors"

var (
	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("memory: transport closed")

	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("memory: listener closed")

	// ErrUnsupportedAddr 不是 /memory 地址
	ErrUnsupportedAddr = errors.New("memory: unsupported address")

	// ErrAddrInUse 端口已被占用
	ErrAddrInUse = errors.New("memory: address in use")

	// ErrConnectionRefused 端口无人监听或 backlog 已满
	ErrConnectionRefused = errors.New("memory: connection refused")
)

package interfaces

import (
	"context"
	"io"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Transport 传输层能力
//
// 必须支持多个并发的监听器与拨号。
type Transport interface {
	// Dial 拨号到指定地址，返回原始连接
	Dial(ctx context.Context, raddr types.Multiaddr) (RawConn, error)

	// CanDial 检查是否能路由该地址
	CanDial(addr types.Multiaddr) bool

	// Listen 在指定地址监听
	Listen(laddr types.Multiaddr) (Listener, error)

	// Protocols 返回处理的 multiaddr 协议名，如 "tcp"、"quic-v1"
	Protocols() []string

	// Close 关闭传输，释放所有监听器
	Close() error
}

// RawConn 传输层产生的原始连接
//
// 实现要么同时实现 net.Conn（需要经过安全与多路复用升级），
// 要么已经实现 UpgradedConn（自带加密和多路复用，如 QUIC，跳过升级）。
type RawConn interface {
	io.Closer

	// LocalMultiaddr 本地地址
	LocalMultiaddr() types.Multiaddr

	// RemoteMultiaddr 远端地址
	RemoteMultiaddr() types.Multiaddr
}

// Listener 监听器
type Listener interface {
	// Accept 阻塞直到有新的入站连接或监听器关闭
	Accept() (RawConn, error)

	// Close 关闭监听器
	Close() error

	// Multiaddr 返回实际监听地址（端口 0 时为分配后的端口）
	Multiaddr() types.Multiaddr
}

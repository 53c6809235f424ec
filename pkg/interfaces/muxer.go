package interfaces

import (
	"context"
	"net"
	"time"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

// StreamMuxer 流多路复用能力
type StreamMuxer interface {
	// NewConn 在安全连接上建立多路复用会话
	NewConn(conn net.Conn, isServer bool) (MuxedConn, error)

	// ID 返回多路复用协议标识
	ID() types.ProtocolID
}

// MuxedConn 多路复用连接
type MuxedConn interface {
	// OpenStream 打开新的出站子流
	OpenStream(ctx context.Context) (MuxedStream, error)

	// AcceptStream 阻塞直到对端打开新子流或连接关闭
	AcceptStream() (MuxedStream, error)

	// Close 关闭连接及其所有子流
	Close() error

	// IsClosed 连接是否已关闭
	IsClosed() bool
}

// MuxedStream 一个有序的子流
type MuxedStream interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)

	// Close 正常关闭子流
	Close() error

	// CloseWrite 半关闭写端
	CloseWrite() error

	// Reset 异常关闭子流
	Reset() error

	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

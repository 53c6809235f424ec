package upgrader

import (
	"context"
	"errors"

	"github.com/dep2p/go-p2pcore/internal/core/negotiate"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var (
	// ErrNilIdentity 身份为空
	ErrNilIdentity = errors.New("upgrader: identity is nil")

	// ErrNoSecurityTransport 没有安全传输
	ErrNoSecurityTransport = errors.New("upgrader: no security transport configured")

	// ErrNoStreamMuxer 没有流复用器
	ErrNoStreamMuxer = errors.New("upgrader: no stream muxer configured")

	// ErrUnsupportedConn 原始连接既不是 net.Conn 也不是已升级连接
	ErrUnsupportedConn = errors.New("upgrader: unsupported raw connection")

	// ErrHandshakeFailed 握手失败
	ErrHandshakeFailed = errors.New("upgrader: handshake failed")

	// ErrMuxerSetupFailed 多路复用器设置失败
	ErrMuxerSetupFailed = errors.New("upgrader: muxer setup failed")

	// ErrLocalPeer 对端就是本地节点
	ErrLocalPeer = errors.New("upgrader: remote peer is the local peer")
)

// DialErrorKind 将升级错误映射为拨号失败分类
func DialErrorKind(err error) types.DialErrorKind {
	switch {
	case errors.Is(err, ErrLocalPeer):
		return types.DialErrorLocalPeer
	case errors.Is(err, types.ErrPeerIDMismatch):
		return types.DialErrorWrongPeer
	case errors.Is(err, context.Canceled):
		return types.DialErrorCancelled
	case errors.Is(err, negotiate.ErrNegotiationFailed):
		return types.DialErrorNegotiationFailed
	default:
		return types.DialErrorUpgradeFailed
	}
}

// ListenErrorKind 将升级错误映射为入站失败分类
func ListenErrorKind(err error) types.ListenErrorKind {
	switch {
	case errors.Is(err, ErrLocalPeer):
		return types.ListenErrorLocalPeer
	case errors.Is(err, context.Canceled):
		return types.ListenErrorCancelled
	case errors.Is(err, negotiate.ErrNegotiationFailed):
		return types.ListenErrorNegotiationFailed
	default:
		return types.ListenErrorUpgradeFailed
	}
}

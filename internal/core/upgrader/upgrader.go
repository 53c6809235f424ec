package upgrader

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dep2p/go-p2pcore/internal/core/negotiate"
	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("core/upgrader")

var _ pkgif.Upgrader = (*Upgrader)(nil)

// Upgrader 连接升级器
type Upgrader struct {
	identity pkgif.Identity

	securityTransports []pkgif.SecureTransport
	securityIDs        []types.ProtocolID
	streamMuxers       []pkgif.StreamMuxer
	muxerIDs           []types.ProtocolID

	handshakeTimeout time.Duration
}

// New 创建连接升级器
func New(id pkgif.Identity, cfg Config) (*Upgrader, error) {
	if id == nil {
		return nil, ErrNilIdentity
	}
	if len(cfg.SecurityTransports) == 0 {
		return nil, ErrNoSecurityTransport
	}
	if len(cfg.StreamMuxers) == 0 {
		return nil, ErrNoStreamMuxer
	}

	u := &Upgrader{
		identity:           id,
		securityTransports: cfg.SecurityTransports,
		streamMuxers:       cfg.StreamMuxers,
		handshakeTimeout:   cfg.HandshakeTimeout,
	}
	for _, st := range cfg.SecurityTransports {
		u.securityIDs = append(u.securityIDs, st.ID())
	}
	for _, m := range cfg.StreamMuxers {
		u.muxerIDs = append(u.muxerIDs, m.ID())
	}
	return u, nil
}

// SecurityProtocols 返回按优先级排序的安全协议
func (u *Upgrader) SecurityProtocols() []types.ProtocolID {
	return u.securityIDs
}

// MuxerProtocols 返回按优先级排序的多路复用协议
func (u *Upgrader) MuxerProtocols() []types.ProtocolID {
	return u.muxerIDs
}

// Upgrade 升级连接
//
// 出站方向 remotePeer 非空时校验对端身份。失败时 conn 已被关闭。
func (u *Upgrader) Upgrade(
	ctx context.Context,
	conn pkgif.RawConn,
	dir types.Direction,
	remotePeer types.PeerID,
) (pkgif.UpgradedConn, error) {
	if u.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.handshakeTimeout)
		defer cancel()
	}

	// 自带加密与多路复用的连接只做身份校验
	if uc, ok := conn.(pkgif.UpgradedConn); ok {
		if err := u.checkRemote(uc.RemotePeer(), remotePeer); err != nil {
			_ = uc.Close()
			return nil, err
		}
		return uc, nil
	}

	nc, ok := conn.(net.Conn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedConn, conn)
	}

	isServer := dir == types.DirInbound

	// 1. 协商安全协议
	logger.Debug("协商安全协议", "direction", dir, "remotePeer", remotePeer.ShortString())
	secTransport, err := u.negotiateSecurity(ctx, nc, isServer)
	if err != nil {
		logger.Debug("安全协议协商失败", "error", err)
		_ = nc.Close()
		return nil, fmt.Errorf("security negotiation: %w", err)
	}

	// 2. 安全握手
	var secConn pkgif.SecureConn
	if isServer {
		secConn, err = secTransport.SecureInbound(ctx, nc, "")
	} else {
		secConn, err = secTransport.SecureOutbound(ctx, nc, remotePeer)
	}
	if err != nil {
		logger.Debug("安全握手失败", "error", err)
		_ = nc.Close()
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	if err := u.checkRemote(secConn.RemotePeer(), remotePeer); err != nil {
		_ = secConn.Close()
		return nil, err
	}
	logger.Debug("安全握手成功", "remotePeer", secConn.RemotePeer().ShortString())

	// 3. 协商多路复用器
	muxer, err := u.negotiateMuxer(ctx, secConn, isServer)
	if err != nil {
		logger.Debug("多路复用器协商失败", "error", err)
		_ = secConn.Close()
		return nil, fmt.Errorf("muxer negotiation: %w", err)
	}

	// 4. 建立多路复用会话
	muxedConn, err := muxer.NewConn(secConn, isServer)
	if err != nil {
		_ = secConn.Close()
		return nil, fmt.Errorf("%w: %w", ErrMuxerSetupFailed, err)
	}

	logger.Debug("连接升级成功",
		"remotePeer", secConn.RemotePeer().ShortString(),
		"security", secTransport.ID(),
		"muxer", muxer.ID())

	return newUpgradedConn(muxedConn, secConn, conn, secTransport.ID(), muxer.ID()), nil
}

// checkRemote 校验认证出的远端身份
func (u *Upgrader) checkRemote(actual, expected types.PeerID) error {
	if actual == u.identity.PeerID() {
		return ErrLocalPeer
	}
	if expected != "" && actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", types.ErrPeerIDMismatch, expected.ShortString(), actual.ShortString())
	}
	return nil
}

// ============================================================================
//                              协议协商
// ============================================================================

func (u *Upgrader) negotiateSecurity(ctx context.Context, conn net.Conn, isServer bool) (pkgif.SecureTransport, error) {
	proto, err := u.negotiate(ctx, conn, u.securityIDs, isServer)
	if err != nil {
		return nil, err
	}
	for _, st := range u.securityTransports {
		if st.ID() == proto {
			return st, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected security %s", negotiate.ErrNegotiationFailed, proto)
}

func (u *Upgrader) negotiateMuxer(ctx context.Context, conn net.Conn, isServer bool) (pkgif.StreamMuxer, error) {
	proto, err := u.negotiate(ctx, conn, u.muxerIDs, isServer)
	if err != nil {
		return nil, err
	}
	for _, m := range u.streamMuxers {
		if m.ID() == proto {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: unexpected muxer %s", negotiate.ErrNegotiationFailed, proto)
}

func (u *Upgrader) negotiate(ctx context.Context, conn net.Conn, protos []types.ProtocolID, isServer bool) (types.ProtocolID, error) {
	if isServer {
		return negotiate.Listen(ctx, conn, protos)
	}
	return negotiate.Select(ctx, conn, protos)
}

package quic

import (
	"context"
	"crypto/ed25519"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

const (
	// SecurityID QUIC 内置 TLS 1.3
	SecurityID types.ProtocolID = "/tls/1.3"

	// MuxerID QUIC 原生流多路复用
	MuxerID types.ProtocolID = "/quic-v1"
)

var _ pkgif.UpgradedConn = (*conn)(nil)

// conn QUIC 连接（已升级）
type conn struct {
	qc quic.Connection

	localPeer  types.PeerID
	remotePeer types.PeerID
	remotePub  ed25519.PublicKey

	laddr types.Multiaddr
	raddr types.Multiaddr

	closed atomic.Bool
}

func newConn(qc quic.Connection, localPeer types.PeerID) (*conn, error) {
	pub, peer, err := remoteIdentity(qc.ConnectionState().TLS)
	if err != nil {
		_ = qc.CloseWithError(0, "bad identity")
		return nil, err
	}
	laddr, _ := toMultiaddr(qc.LocalAddr())
	raddr, _ := toMultiaddr(qc.RemoteAddr())
	return &conn{
		qc:         qc,
		localPeer:  localPeer,
		remotePeer: peer,
		remotePub:  pub,
		laddr:      laddr,
		raddr:      raddr,
	}, nil
}

// OpenStream 打开新流
func (c *conn) OpenStream(ctx context.Context) (pkgif.MuxedStream, error) {
	s, err := c.qc.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &stream{s: s}, nil
}

// AcceptStream 接受新流
func (c *conn) AcceptStream() (pkgif.MuxedStream, error) {
	s, err := c.qc.AcceptStream(context.Background())
	if err != nil {
		return nil, err
	}
	return &stream{s: s}, nil
}

// Close 关闭连接
func (c *conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.qc.CloseWithError(0, "")
}

// IsClosed 连接是否已关闭
func (c *conn) IsClosed() bool {
	return c.closed.Load() || c.qc.Context().Err() != nil
}

func (c *conn) LocalPeer() types.PeerID { return c.localPeer }
func (c *conn) RemotePeer() types.PeerID { return c.remotePeer }
func (c *conn) RemotePublicKey() ed25519.PublicKey { return c.remotePub }
func (c *conn) Security() types.ProtocolID { return SecurityID }
func (c *conn) Muxer() types.ProtocolID { return MuxerID }
func (c *conn) LocalMultiaddr() types.Multiaddr { return c.laddr }
func (c *conn) RemoteMultiaddr() types.Multiaddr { return c.raddr }

// ============================================================================
//                              stream
// ============================================================================

var _ pkgif.MuxedStream = (*stream)(nil)

// stream QUIC 双向流
type stream struct {
	s quic.Stream
}

func (s *stream) Read(p []byte) (int, error) { return s.s.Read(p) }
func (s *stream) Write(p []byte) (int, error) { return s.s.Write(p) }

// Close 关闭写端并停止读取
func (s *stream) Close() error {
	s.s.CancelRead(0)
	return s.s.Close()
}

// CloseWrite 半关闭（QUIC 的 Close 只关闭发送方向）
func (s *stream) CloseWrite() error {
	return s.s.Close()
}

// Reset 异常终止两个方向
func (s *stream) Reset() error {
	s.s.CancelRead(0)
	s.s.CancelWrite(0)
	return nil
}

func (s *stream) SetDeadline(t time.Time) error { return s.s.SetDeadline(t) }
func (s *stream) SetReadDeadline(t time.Time) error { return s.s.SetReadDeadline(t) }
func (s *stream) SetWriteDeadline(t time.Time) error { return s.s.SetWriteDeadline(t) }

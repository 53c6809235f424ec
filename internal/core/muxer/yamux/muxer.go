package yamux

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/hashicorp/yamux"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// ID yamux 协议标识
const ID types.ProtocolID = "/yamux/1.0.0"

var _ pkgif.StreamMuxer = (*Transport)(nil)

// Transport yamux 多路复用器
type Transport struct {
	config *yamux.Config
}

// New 创建多路复用器，配置非法时返回错误
func New(cfg Config) (*Transport, error) {
	yc := cfg.toYamux()
	if err := yamux.VerifyConfig(yc); err != nil {
		return nil, err
	}
	return &Transport{config: yc}, nil
}

// ID 返回协议标识
func (t *Transport) ID() types.ProtocolID {
	return ID
}

// NewConn 在连接上建立 yamux 会话
func (t *Transport) NewConn(conn net.Conn, isServer bool) (pkgif.MuxedConn, error) {
	var (
		sess *yamux.Session
		err  error
	)
	if isServer {
		sess, err = yamux.Server(conn, t.config)
	} else {
		sess, err = yamux.Client(conn, t.config)
	}
	if err != nil {
		return nil, err
	}
	return &muxedConn{session: sess}, nil
}

// ============================================================================
//                              muxedConn
// ============================================================================

var _ pkgif.MuxedConn = (*muxedConn)(nil)

type muxedConn struct {
	session *yamux.Session
}

// OpenStream 打开新流
//
// yamux 的 OpenStream 不接受 ctx，ctx 取消时关闭会话之外无法中止，
// 这里只在调用前检查 ctx。
func (c *muxedConn) OpenStream(ctx context.Context) (pkgif.MuxedStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := c.session.OpenStream()
	if err != nil {
		return nil, parseError(err)
	}
	return &stream{s: s}, nil
}

// AcceptStream 接受新流
func (c *muxedConn) AcceptStream() (pkgif.MuxedStream, error) {
	s, err := c.session.AcceptStream()
	if err != nil {
		return nil, parseError(err)
	}
	return &stream{s: s}, nil
}

// Close 关闭会话
func (c *muxedConn) Close() error {
	return c.session.Close()
}

// IsClosed 会话是否已关闭
func (c *muxedConn) IsClosed() bool {
	return c.session.IsClosed()
}

// parseError 将会话关闭类错误统一为 types.ErrConnectionClosed
func parseError(err error) error {
	switch {
	case errors.Is(err, yamux.ErrSessionShutdown), errors.Is(err, yamux.ErrRemoteGoAway):
		return types.ErrConnectionClosed
	default:
		return err
	}
}

// ============================================================================
//                              stream
// ============================================================================

var _ pkgif.MuxedStream = (*stream)(nil)

type stream struct {
	s *yamux.Stream
}

func (s *stream) Read(p []byte) (int, error) { return s.s.Read(p) }
func (s *stream) Write(p []byte) (int, error) { return s.s.Write(p) }

// Close 关闭流
func (s *stream) Close() error {
	return s.s.Close()
}

// CloseWrite 发送 FIN，对端读到 EOF，本端仍可读
func (s *stream) CloseWrite() error {
	return s.s.Close()
}

// Reset 发送 FIN 并让本地后续读写立即失败
func (s *stream) Reset() error {
	err := s.s.Close()
	_ = s.s.SetDeadline(time.Now())
	return err
}

func (s *stream) SetDeadline(t time.Time) error { return s.s.SetDeadline(t) }
func (s *stream) SetReadDeadline(t time.Time) error { return s.s.SetReadDeadline(t) }
func (s *stream) SetWriteDeadline(t time.Time) error { return s.s.SetWriteDeadline(t) }

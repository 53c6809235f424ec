package noise

import (
	"context"
	"fmt"
	"net"
	"time"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("core/security/noise")

// ID Noise 协议标识
const ID types.ProtocolID = "/noise"

var _ pkgif.SecureTransport = (*Transport)(nil)

// Transport Noise 协议传输
type Transport struct {
	identity pkgif.Identity
}

// New 创建 Noise 传输
func New(identity pkgif.Identity) (*Transport, error) {
	if identity == nil {
		return nil, ErrNilIdentity
	}
	return &Transport{identity: identity}, nil
}

// ID 返回协议标识
func (t *Transport) ID() types.ProtocolID {
	return ID
}

// SecureInbound 保护入站连接
func (t *Transport) SecureInbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (pkgif.SecureConn, error) {
	return t.secure(ctx, conn, remotePeer, false)
}

// SecureOutbound 保护出站连接
func (t *Transport) SecureOutbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (pkgif.SecureConn, error) {
	return t.secure(ctx, conn, remotePeer, true)
}

func (t *Transport) secure(ctx context.Context, conn net.Conn, remotePeer types.PeerID, initiator bool) (pkgif.SecureConn, error) {
	if conn == nil {
		return nil, fmt.Errorf("conn is nil")
	}

	if d, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(d)
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logger.Debug("Noise 握手", "initiator", initiator, "remotePeer", remotePeer.ShortString())

	res, err := performHandshake(conn, t.identity, initiator)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		logger.Debug("Noise 握手失败", "remotePeer", remotePeer.ShortString(), "error", err)
		return nil, fmt.Errorf("noise handshake: %w", err)
	}

	if remotePeer != "" && res.remotePeer != remotePeer {
		return nil, fmt.Errorf("%w: expected %s, got %s", types.ErrPeerIDMismatch, remotePeer.ShortString(), res.remotePeer.ShortString())
	}

	logger.Debug("Noise 握手成功", "remotePeer", res.remotePeer.ShortString())
	return &secureConn{
		Conn:         conn,
		sendCS:       res.sendCS,
		recvCS:       res.recvCS,
		localPeer:    t.identity.PeerID(),
		remotePeer:   res.remotePeer,
		remotePubKey: res.remotePubKey,
	}, nil
}

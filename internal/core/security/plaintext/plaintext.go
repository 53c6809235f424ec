package plaintext

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/lib/codec"
	"github.com/dep2p/go-p2pcore/pkg/lib/log"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var logger = log.Logger("core/security/plaintext")

// ID 明文交换协议标识
const ID types.ProtocolID = "/plaintext/2.0.0"

// maxExchangeSize 交换消息最大长度
const maxExchangeSize = 4096

var (
	// ErrNilIdentity 身份为空
	ErrNilIdentity = errors.New("plaintext: identity is nil")

	// ErrInvalidExchange 交换消息无效
	ErrInvalidExchange = errors.New("plaintext: invalid exchange message")
)

var _ pkgif.SecureTransport = (*Transport)(nil)

// Transport 明文传输
type Transport struct {
	identity pkgif.Identity
}

// New 创建明文传输
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

// SecureInbound 入站交换
func (t *Transport) SecureInbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (pkgif.SecureConn, error) {
	return t.exchange(ctx, conn, remotePeer)
}

// SecureOutbound 出站交换
func (t *Transport) SecureOutbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (pkgif.SecureConn, error) {
	return t.exchange(ctx, conn, remotePeer)
}

func (t *Transport) exchange(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (pkgif.SecureConn, error) {
	if d, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(d)
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	// 写与读并发进行，避免同步管道上双方同时写入时死锁
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- codec.WriteFrame(conn, marshalExchange(t.identity.PeerID(), t.identity.PublicKey()))
	}()

	frame, err := codec.ReadFrame(conn, maxExchangeSize)
	if err != nil {
		return nil, fmt.Errorf("read exchange: %w", err)
	}
	if err := <-writeErr; err != nil {
		return nil, fmt.Errorf("write exchange: %w", err)
	}

	peer, pub, err := unmarshalExchange(frame)
	if err != nil {
		return nil, err
	}
	if remotePeer != "" && peer != remotePeer {
		return nil, fmt.Errorf("%w: expected %s, got %s", types.ErrPeerIDMismatch, remotePeer.ShortString(), peer.ShortString())
	}

	logger.Debug("明文身份交换完成", "remotePeer", peer.ShortString())
	return &plainConn{
		Conn:       conn,
		localPeer:  t.identity.PeerID(),
		remotePeer: peer,
		remotePub:  pub,
	}, nil
}

func marshalExchange(id types.PeerID, pub ed25519.PublicKey) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(id))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, pub)
	return b
}

func unmarshalExchange(b []byte) (types.PeerID, ed25519.PublicKey, error) {
	var id, pub []byte
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 || typ != protowire.BytesType {
			return "", nil, ErrInvalidExchange
		}
		b = b[n:]
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return "", nil, ErrInvalidExchange
		}
		b = b[n:]
		switch num {
		case 1:
			id = v
		case 2:
			pub = v
		}
	}

	peer := types.PeerID(id)
	if !peer.MatchesPublicKey(pub) {
		return "", nil, fmt.Errorf("%w: peer id does not match public key", ErrInvalidExchange)
	}
	return peer, append(ed25519.PublicKey(nil), pub...), nil
}

// plainConn 明文连接
type plainConn struct {
	net.Conn
	localPeer  types.PeerID
	remotePeer types.PeerID
	remotePub  ed25519.PublicKey
}

func (c *plainConn) LocalPeer() types.PeerID { return c.localPeer }
func (c *plainConn) RemotePeer() types.PeerID { return c.remotePeer }
func (c *plainConn) RemotePublicKey() ed25519.PublicKey { return c.remotePub }

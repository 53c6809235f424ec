package interfaces

import (
	"context"
	"crypto/ed25519"
	"net"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

// SecureTransport 安全传输能力
//
// 由协商器从静态列表中选出，对连接加密并认证远端身份。
type SecureTransport interface {
	// SecureInbound 保护入站连接，remotePeer 为空表示不校验
	SecureInbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (SecureConn, error)

	// SecureOutbound 保护出站连接，remotePeer 非空时校验远端身份
	SecureOutbound(ctx context.Context, conn net.Conn, remotePeer types.PeerID) (SecureConn, error)

	// ID 返回安全协议标识
	ID() types.ProtocolID
}

// SecureConn 安全连接
type SecureConn interface {
	net.Conn

	// LocalPeer 本地节点 ID
	LocalPeer() types.PeerID

	// RemotePeer 经过认证的远端节点 ID
	RemotePeer() types.PeerID

	// RemotePublicKey 远端公钥
	RemotePublicKey() ed25519.PublicKey
}

package interfaces

import (
	"context"
	"crypto/ed25519"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Upgrader 连接升级器
//
// 升级过程：
//  1. 安全协议协商（multistream-select）
//  2. 安全握手
//  3. 多路复用协商（multistream-select）
//  4. 多路复用会话建立
//
// 已实现 UpgradedConn 的原始连接（如 QUIC）跳过升级。
type Upgrader interface {
	// Upgrade 升级连接
	//
	// 出站方向 remotePeer 非空时校验远端身份。
	Upgrade(ctx context.Context, conn RawConn, dir types.Direction, remotePeer types.PeerID) (UpgradedConn, error)
}

// UpgradedConn 安全、多路复用的连接
type UpgradedConn interface {
	MuxedConn

	// LocalPeer 本地节点 ID
	LocalPeer() types.PeerID

	// RemotePeer 远端节点 ID
	RemotePeer() types.PeerID

	// RemotePublicKey 远端公钥
	RemotePublicKey() ed25519.PublicKey

	// Security 协商出的安全协议
	Security() types.ProtocolID

	// Muxer 协商出的多路复用协议
	Muxer() types.ProtocolID

	// LocalMultiaddr 本地地址
	LocalMultiaddr() types.Multiaddr

	// RemoteMultiaddr 远端地址
	RemoteMultiaddr() types.Multiaddr
}

package upgrader

import (
	"crypto/ed25519"

	pkgif "github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

var _ pkgif.UpgradedConn = (*upgradedConn)(nil)

// upgradedConn 升级后的连接
type upgradedConn struct {
	pkgif.MuxedConn

	secConn pkgif.SecureConn
	raw     pkgif.RawConn

	security types.ProtocolID
	muxer    types.ProtocolID
}

func newUpgradedConn(
	muxed pkgif.MuxedConn,
	secConn pkgif.SecureConn,
	raw pkgif.RawConn,
	security, muxer types.ProtocolID,
) *upgradedConn {
	return &upgradedConn{
		MuxedConn: muxed,
		secConn:   secConn,
		raw:       raw,
		security:  security,
		muxer:     muxer,
	}
}

// LocalPeer 返回本地节点 ID
func (c *upgradedConn) LocalPeer() types.PeerID {
	return c.secConn.LocalPeer()
}

// RemotePeer 返回远端节点 ID
func (c *upgradedConn) RemotePeer() types.PeerID {
	return c.secConn.RemotePeer()
}

// RemotePublicKey 返回远端公钥
func (c *upgradedConn) RemotePublicKey() ed25519.PublicKey {
	return c.secConn.RemotePublicKey()
}

// Security 返回协商的安全协议
func (c *upgradedConn) Security() types.ProtocolID {
	return c.security
}

// Muxer 返回协商的多路复用器
func (c *upgradedConn) Muxer() types.ProtocolID {
	return c.muxer
}

// LocalMultiaddr 返回本地地址
func (c *upgradedConn) LocalMultiaddr() types.Multiaddr {
	return c.raw.LocalMultiaddr()
}

// RemoteMultiaddr 返回远端地址
func (c *upgradedConn) RemoteMultiaddr() types.Multiaddr {
	return c.raw.RemoteMultiaddr()
}

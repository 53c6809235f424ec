package interfaces

import (
	"crypto/ed25519"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Identity 本地节点身份
type Identity interface {
	// PeerID 本地节点 ID
	PeerID() types.PeerID

	// PublicKey 公钥
	PublicKey() ed25519.PublicKey

	// PrivateKey 私钥
	PrivateKey() ed25519.PrivateKey

	// Sign 签名
	Sign(data []byte) ([]byte, error)
}

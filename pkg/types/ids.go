package types

import (
	"crypto/ed25519"
	"errors"
	"strconv"

	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
)

// ============================================================================
//                              PeerID - 节点标识
// ============================================================================

// PeerID 远端节点的稳定标识
//
// 由公钥派生：base58(sha256(publicKey))，不可变，可用作 map key。
type PeerID string

// EmptyPeerID 空 PeerID
const EmptyPeerID PeerID = ""

var (
	// ErrEmptyPeerID 空节点 ID
	ErrEmptyPeerID = errors.New("empty peer ID")

	// ErrInvalidPeerID 无效的节点 ID
	ErrInvalidPeerID = errors.New("invalid peer ID: must be base58 encoded sha256 digest")

	// ErrInvalidPublicKey 无效的公钥
	ErrInvalidPublicKey = errors.New("invalid ed25519 public key")
)

// PeerIDFromPublicKey 从 Ed25519 公钥派生 PeerID
func PeerIDFromPublicKey(pub ed25519.PublicKey) (PeerID, error) {
	if len(pub) != ed25519.PublicKeySize {
		return EmptyPeerID, ErrInvalidPublicKey
	}
	sum := sha256.Sum256(pub)
	return PeerID(base58.Encode(sum[:])), nil
}

// ParsePeerID 从字符串解析 PeerID
//
// 仅接受 base58 编码的 32 字节摘要。
func ParsePeerID(s string) (PeerID, error) {
	if s == "" {
		return EmptyPeerID, ErrEmptyPeerID
	}
	b, err := base58.Decode(s)
	if err != nil || len(b) != sha256.Size {
		return EmptyPeerID, ErrInvalidPeerID
	}
	return PeerID(s), nil
}

// String 返回 PeerID 字符串
func (id PeerID) String() string {
	return string(id)
}

// ShortString 返回用于日志的短标识（前 8 个字符）
func (id PeerID) ShortString() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// IsEmpty 检查 PeerID 是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// MatchesPublicKey 检查 PeerID 是否由给定公钥派生
func (id PeerID) MatchesPublicKey(pub ed25519.PublicKey) bool {
	derived, err := PeerIDFromPublicKey(pub)
	if err != nil {
		return false
	}
	return derived == id
}

// ============================================================================
//                              ConnectionID - 连接标识
// ============================================================================

// ConnectionID 进程内单调递增的连接句柄
//
// 由 Connection Pool 在拨号或接受入站连接时分配，pending 与 established
// 阶段共用同一个 ID，永不复用。零值无效。
type ConnectionID uint64

// NoConnection 无效的连接 ID
const NoConnection ConnectionID = 0

// String 返回连接 ID 字符串
func (id ConnectionID) String() string {
	return "conn-" + strconv.FormatUint(uint64(id), 10)
}

// IsValid 检查连接 ID 是否有效
func (id ConnectionID) IsValid() bool {
	return id != NoConnection
}

// ============================================================================
//                              ListenerID - 监听器标识
// ============================================================================

// ListenerID Swarm 内唯一的监听器句柄
type ListenerID uint64

// String 返回监听器 ID 字符串
func (id ListenerID) String() string {
	return "listener-" + strconv.FormatUint(uint64(id), 10)
}

// ============================================================================
//                              ProtocolID - 协议标识
// ============================================================================

// ProtocolID 协议标识符
//
// 格式: /name/version，例如 /noise、/yamux/1.0.0、/ipfs/ping/1.0.0
type ProtocolID string

// String 返回协议 ID 字符串
func (p ProtocolID) String() string {
	return string(p)
}

// ProtocolStrings 将协议 ID 列表转换为字符串列表
func ProtocolStrings(protos []ProtocolID) []string {
	out := make([]string, len(protos))
	for i, p := range protos {
		out[i] = string(p)
	}
	return out
}

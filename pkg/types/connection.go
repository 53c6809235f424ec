package types

import (
	"fmt"
	"time"
)

// ============================================================================
//                              Endpoint - 连接端点
// ============================================================================

// Endpoint 描述一条连接的方向与两端地址
type Endpoint struct {
	// Direction 连接方向
	Direction Direction

	// LocalAddr 本地地址（出站拨号时可能为 nil）
	LocalAddr Multiaddr

	// RemoteAddr 远端地址
	RemoteAddr Multiaddr
}

// IsDialer 是否为拨号方
func (e Endpoint) IsDialer() bool {
	return e.Direction == DirOutbound
}

// String 返回端点的字符串表示
func (e Endpoint) String() string {
	return fmt.Sprintf("%s %s -> %s", e.Direction, AddrString(e.LocalAddr), AddrString(e.RemoteAddr))
}

// ============================================================================
//                              ConnectionInfo - 已建立连接
// ============================================================================

// ConnectionInfo 已建立连接的只读描述
//
// 连接本身由 Pool 独占；Behaviour 与 Handler 只持有该描述和 ConnectionID。
type ConnectionInfo struct {
	// ID 连接标识（与 pending 阶段相同）
	ID ConnectionID

	// Peer 远端节点
	Peer PeerID

	// Endpoint 方向与地址
	Endpoint Endpoint

	// EstablishedAt 建立时间
	EstablishedAt time.Time

	// Security 协商出的安全协议
	Security ProtocolID

	// Muxer 协商出的多路复用协议
	Muxer ProtocolID
}

// String 返回连接描述
func (c ConnectionInfo) String() string {
	return fmt.Sprintf("%s[%s %s]", c.ID, c.Peer.ShortString(), c.Endpoint.Direction)
}

// Package types 定义 p2pcore 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 p2pcore 内部包。
// 所有类型都是值类型，用于在 Transport、Pool、Swarm、Behaviour 之间传递数据。
//
// # 文件组织
//
//   - ids.go        - PeerID, ConnectionID, ListenerID, ProtocolID
//   - multiaddr.go  - Multiaddr 别名与解析
//   - enums.go      - Direction, CloseReason, DialErrorKind, ListenErrorKind
//   - connection.go - Endpoint, ConnectionInfo
//   - events.go     - SwarmEvent 及其各个变体
//   - errors.go     - AddressError, DialError, ListenError 与公共错误
//   - metrics.go    - MetricsSnapshot
//
// # 事件模型
//
// Pool 与 Swarm 之间、Swarm 与 Behaviour 之间只通过 SwarmEvent 传递状态变化。
// 每个事件都携带 ConnectionID，使异步拨号在 pending → established 的转换前后可追踪。
package types

// Package interfaces 定义 p2pcore 的能力接口
//
// 核心只通过这些接口消费外部协作者（传输、安全、多路复用、编解码），
// 并通过 ConnectionHandler / NetworkBehaviour 向协议实现者暴露扩展契约。
//
// # 文件组织
//
// 外部能力（由 internal/core 下的实现提供）：
//   - transport.go  - Transport, Listener, RawConn
//   - security.go   - SecureTransport, SecureConn
//   - muxer.go      - StreamMuxer, MuxedConn, MuxedStream
//   - upgrader.go   - Upgrader, UpgradedConn
//   - identity.go   - Identity
//   - codec.go      - Codec
//
// 协议扩展契约：
//   - handler.go    - ConnectionHandler, HandlerAction, ConnectionEvent
//   - behaviour.go  - NetworkBehaviour, BehaviourAction, InboundFilter
//
// # 依赖方向
//
//	interfaces → types, lib/poll
//
// 禁止反向依赖。
package interfaces

package interfaces

import (
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// ============================================================================
//                              NetworkBehaviour
// ============================================================================

// NetworkBehaviour 跨连接的应用逻辑
//
// 消费 Pool 事件，产生 Pool 命令。所有方法都在 Swarm 的轮询线程中调用。
// 多个 Behaviour 通过 pkg/behaviour.Compose 静态组合为一个。
type NetworkBehaviour interface {
	// NewHandler 为新建立的连接创建 Handler
	//
	// 返回错误表示拒绝该连接（关闭原因 Denied）。
	NewHandler(info types.ConnectionInfo) (ConnectionHandler, error)

	// OnSwarmEvent 接收连接生命周期事件
	OnSwarmEvent(ev types.SwarmEvent)

	// OnHandlerEvent 接收某条连接上 Handler 产生的事件
	OnHandlerEvent(peer types.PeerID, id types.ConnectionID, ev any)

	// Poll 推进内部状态，产生下一个动作
	Poll(cx *poll.Context) BehaviourAction
}

// InboundFilter 可选接口：在升级之前拒绝入站连接
type InboundFilter interface {
	// HandlePendingInbound 返回错误表示拒绝
	HandlePendingInbound(id types.ConnectionID, local, remote types.Multiaddr) error
}

// ============================================================================
//                              BehaviourAction
// ============================================================================

// BehaviourActionKind Behaviour 动作类型
type BehaviourActionKind int

const (
	// BehaviourPending 没有进展
	BehaviourPending BehaviourActionKind = iota
	// BehaviourDial 拨号
	BehaviourDial
	// BehaviourNotifyHandler 向连接的 Handler 发送命令
	BehaviourNotifyHandler
	// BehaviourCloseConnection 关闭连接
	BehaviourCloseConnection
	// BehaviourGenerateEvent 向嵌入方产生事件
	BehaviourGenerateEvent
)

// String 返回动作类型名
func (k BehaviourActionKind) String() string {
	switch k {
	case BehaviourDial:
		return "dial"
	case BehaviourNotifyHandler:
		return "notify-handler"
	case BehaviourCloseConnection:
		return "close-connection"
	case BehaviourGenerateEvent:
		return "generate-event"
	default:
		return "pending"
	}
}

// DialOpts 拨号参数
type DialOpts struct {
	// Peer 期望的远端节点，非空时校验握手得到的身份
	Peer types.PeerID

	// Addrs 候选地址，按顺序尝试
	Addrs []types.Multiaddr
}

// BehaviourAction Behaviour 一次 Poll 的结果
type BehaviourAction struct {
	Kind BehaviourActionKind

	// Dial 拨号参数（BehaviourDial）
	Dial DialOpts

	// Peer 目标节点（BehaviourNotifyHandler / BehaviourCloseConnection）
	Peer types.PeerID

	// Connection 目标连接，NoConnection 表示该节点的任意连接（通知）
	// 或所有连接（关闭）
	Connection types.ConnectionID

	// Command Handler 命令（BehaviourNotifyHandler）
	Command any

	// Event 交给嵌入方的事件（BehaviourGenerateEvent）
	Event any
}

// ============================================================================
//                              动作构造
// ============================================================================

// PendingAction 没有进展
func PendingAction() BehaviourAction {
	return BehaviourAction{Kind: BehaviourPending}
}

// DialAction 拨号
func DialAction(opts DialOpts) BehaviourAction {
	return BehaviourAction{Kind: BehaviourDial, Dial: opts}
}

// NotifyAction 向指定连接（或 NoConnection 表示任意连接）发送命令
func NotifyAction(peer types.PeerID, conn types.ConnectionID, cmd any) BehaviourAction {
	return BehaviourAction{Kind: BehaviourNotifyHandler, Peer: peer, Connection: conn, Command: cmd}
}

// CloseAction 关闭指定连接（或 NoConnection 表示所有连接）
func CloseAction(peer types.PeerID, conn types.ConnectionID) BehaviourAction {
	return BehaviourAction{Kind: BehaviourCloseConnection, Peer: peer, Connection: conn}
}

// EventAction 向嵌入方产生事件
func EventAction(ev any) BehaviourAction {
	return BehaviourAction{Kind: BehaviourGenerateEvent, Event: ev}
}

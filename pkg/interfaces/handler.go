package interfaces

import (
	"github.com/dep2p/go-p2pcore/pkg/lib/poll"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// ============================================================================
//                              ConnectionHandler
// ============================================================================

// ConnectionHandler 每条连接、每个应用协议一个的状态机
//
// Handler 由 Pool 独占驱动，所有方法都在 Swarm 的轮询线程中调用，
// 不需要加锁。Handler 必须是迭代式的：Poll 不得无限期停留，昂贵的
// 工作应拆分到多个轮询周期中。
//
// Handler 不直接拥有传输资源，只持有 Pool 交给它的子流。
type ConnectionHandler interface {
	// ListenProtocols 入站子流可协商的协议列表
	ListenProtocols() []types.ProtocolID

	// OnCommand 接收来自 Behaviour 的命令
	//
	// 只入队，不阻塞，不发送字节；同一连接内按 Behaviour 发出的顺序调用。
	OnCommand(cmd any)

	// OnConnectionEvent 接收子流协商结果
	OnConnectionEvent(ev ConnectionEvent)

	// Poll 推进内部状态
	//
	// 返回 Pending 时必须已经通过 cx.Waker() 登记了唤醒源。
	Poll(cx *poll.Context) HandlerAction

	// KeepAlive 是否需要保持连接
	//
	// 所有 Handler 都返回 false 且没有在途子流时，连接在空闲超时后关闭。
	KeepAlive() bool

	// PollClose 连接关闭时排空在途工作
	//
	// 返回 (ev, false) 且 ev 非 nil 表示排空过程中产生的最后事件；
	// (nil, false) 表示尚未完成；done 为 true 表示排空结束。
	PollClose(cx *poll.Context) (ev any, done bool)
}

// ============================================================================
//                              HandlerAction
// ============================================================================

// HandlerActionKind Handler 一次 Poll 的结果类型
type HandlerActionKind int

const (
	// ActionPending 没有进展，等待唤醒
	ActionPending HandlerActionKind = iota
	// ActionOpenStream 请求打开出站子流
	ActionOpenStream
	// ActionNotify 产生一个 Handler 事件
	ActionNotify
	// ActionClose 协议错误，关闭整条连接
	ActionClose
)

// String 返回结果类型名
func (k HandlerActionKind) String() string {
	switch k {
	case ActionOpenStream:
		return "open-stream"
	case ActionNotify:
		return "notify"
	case ActionClose:
		return "close"
	default:
		return "pending"
	}
}

// HandlerAction Handler 一次 Poll 的结果
//
// 使用 pkg/handler 中的构造函数创建。
type HandlerAction struct {
	Kind HandlerActionKind

	// Protocols 出站子流按顺序提议的协议（ActionOpenStream）
	Protocols []types.ProtocolID

	// Info 随协商结果原样返回的关联数据（ActionOpenStream）
	Info any

	// Event Handler 事件（ActionNotify）
	Event any

	// Err 关闭原因（ActionClose）
	Err error
}

// ============================================================================
//                              ConnectionEvent
// ============================================================================

// ConnectionEvent Pool 交给 Handler 的子流事件
type ConnectionEvent interface {
	connectionEvent()
}

// FullyNegotiatedInbound 入站子流协商完成
type FullyNegotiatedInbound struct {
	Protocol types.ProtocolID
	Stream   MuxedStream
}

// FullyNegotiatedOutbound 出站子流协商完成
type FullyNegotiatedOutbound struct {
	Protocol types.ProtocolID
	Stream   MuxedStream
	Info     any
}

// DialUpgradeError 出站子流打开或协商失败
type DialUpgradeError struct {
	Info any
	Err  error
}

// ListenUpgradeError 入站子流协商失败
type ListenUpgradeError struct {
	Err error
}

func (FullyNegotiatedInbound) connectionEvent()  {}
func (FullyNegotiatedOutbound) connectionEvent() {}
func (DialUpgradeError) connectionEvent()        {}
func (ListenUpgradeError) connectionEvent()      {}

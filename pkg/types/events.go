package types

import "fmt"

// ============================================================================
//                              SwarmEvent - 事件总类型
// ============================================================================

// SwarmEvent Pool → Swarm → Behaviour / 嵌入方 的事件
//
// 这是一个封闭的和类型，只有本文件定义的结构体实现它。
type SwarmEvent interface {
	swarmEvent()
	String() string
}

// ConnectionEstablished 连接建立完成
type ConnectionEstablished struct {
	Info ConnectionInfo

	// Existing 建立前与该节点已存在的连接数
	Existing int
}

// ConnectionClosed 连接关闭
//
// 对同一 ConnectionID，该事件一定先于任何后续引用出现。
type ConnectionClosed struct {
	Info   ConnectionInfo
	Reason CloseReason

	// Err 关闭原因的底层错误（本地关闭时为 nil）
	Err error

	// Remaining 关闭后与该节点剩余的连接数
	Remaining int
}

// DialFailure 出站连接失败（包括被取消）
type DialFailure struct {
	ID   ConnectionID
	Peer PeerID
	Err  *DialError
}

// Dialing 开始拨号
type Dialing struct {
	ID   ConnectionID
	Peer PeerID
	Addr Multiaddr
}

// IncomingConnection 新入站连接进入升级流程
type IncomingConnection struct {
	ID         ConnectionID
	ListenerID ListenerID
	LocalAddr  Multiaddr
	RemoteAddr Multiaddr
}

// IncomingConnectionError 入站连接失败
type IncomingConnectionError struct {
	ID         ConnectionID
	ListenerID ListenerID
	LocalAddr  Multiaddr
	RemoteAddr Multiaddr
	Err        *ListenError
}

// NewListenAddr 监听器开始在新地址上监听
type NewListenAddr struct {
	ListenerID ListenerID
	Addr       Multiaddr
}

// ExpiredListenAddr 监听地址失效
type ExpiredListenAddr struct {
	ListenerID ListenerID
	Addr       Multiaddr
}

// ListenerClosed 监听器关闭
type ListenerClosed struct {
	ListenerID ListenerID
	Addrs      []Multiaddr

	// Err 非主动关闭时的错误
	Err error
}

// ListenerError 监听器遇到非致命错误
type ListenerError struct {
	ListenerID ListenerID
	Err        error
}

// HandlerEvent 连接处理器产生的事件（仅在 Pool → Behaviour 方向）
type HandlerEvent struct {
	Peer  PeerID
	ID    ConnectionID
	Event any
}

// BehaviourEvent Behaviour 产生并交给嵌入方的事件
type BehaviourEvent struct {
	Event any
}

func (ConnectionEstablished) swarmEvent()   {}
func (ConnectionClosed) swarmEvent()        {}
func (DialFailure) swarmEvent()             {}
func (Dialing) swarmEvent()                 {}
func (IncomingConnection) swarmEvent()      {}
func (IncomingConnectionError) swarmEvent() {}
func (NewListenAddr) swarmEvent()           {}
func (ExpiredListenAddr) swarmEvent()       {}
func (ListenerClosed) swarmEvent()          {}
func (ListenerError) swarmEvent()           {}
func (HandlerEvent) swarmEvent()            {}
func (BehaviourEvent) swarmEvent()          {}

func (e ConnectionEstablished) String() string {
	return fmt.Sprintf("ConnectionEstablished(%s)", e.Info)
}

func (e ConnectionClosed) String() string {
	return fmt.Sprintf("ConnectionClosed(%s, %s)", e.Info, e.Reason)
}

func (e DialFailure) String() string {
	return fmt.Sprintf("DialFailure(%s, %v)", e.ID, e.Err)
}

func (e Dialing) String() string {
	return fmt.Sprintf("Dialing(%s, %s)", e.ID, AddrString(e.Addr))
}

func (e IncomingConnection) String() string {
	return fmt.Sprintf("IncomingConnection(%s, %s)", e.ID, AddrString(e.RemoteAddr))
}

func (e IncomingConnectionError) String() string {
	return fmt.Sprintf("IncomingConnectionError(%s, %v)", e.ID, e.Err)
}

func (e NewListenAddr) String() string {
	return fmt.Sprintf("NewListenAddr(%s, %s)", e.ListenerID, AddrString(e.Addr))
}

func (e ExpiredListenAddr) String() string {
	return fmt.Sprintf("ExpiredListenAddr(%s, %s)", e.ListenerID, AddrString(e.Addr))
}

func (e ListenerClosed) String() string {
	return fmt.Sprintf("ListenerClosed(%s)", e.ListenerID)
}

func (e ListenerError) String() string {
	return fmt.Sprintf("ListenerError(%s, %v)", e.ListenerID, e.Err)
}

func (e HandlerEvent) String() string {
	return fmt.Sprintf("HandlerEvent(%s, %T)", e.ID, e.Event)
}

func (e BehaviourEvent) String() string {
	return fmt.Sprintf("BehaviourEvent(%T)", e.Event)
}

// EventConnectionID 返回事件关联的连接 ID，与连接无关的事件返回 NoConnection
func EventConnectionID(ev SwarmEvent) ConnectionID {
	switch e := ev.(type) {
	case ConnectionEstablished:
		return e.Info.ID
	case ConnectionClosed:
		return e.Info.ID
	case DialFailure:
		return e.ID
	case Dialing:
		return e.ID
	case IncomingConnection:
		return e.ID
	case IncomingConnectionError:
		return e.ID
	case HandlerEvent:
		return e.ID
	default:
		return NoConnection
	}
}

package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              公共错误
// ============================================================================

var (
	// ErrEmptyMultiaddr 空地址
	ErrEmptyMultiaddr = errors.New("empty multiaddr")

	// ErrProtocolTimeout 协议定义的截止时间已过
	//
	// 由 Handler 以事件形式上报，形状与应用层失败响应一致。
	ErrProtocolTimeout = errors.New("protocol timeout")

	// ErrHandler 应用协议违规
	ErrHandler = errors.New("handler error")

	// ErrConnectionClosed 连接已关闭
	ErrConnectionClosed = errors.New("connection closed")

	// ErrPeerIDMismatch 对端认证出的身份与期望的 PeerID 不符
	ErrPeerIDMismatch = errors.New("peer id mismatch")
)

// ============================================================================
//                              AddressError - 地址错误
// ============================================================================

// AddressError 地址格式错误或不被任何 Transport 支持
//
// 同步返回，不会触达网络。
type AddressError struct {
	Addr string
	Err  error
}

func (e *AddressError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("address error: %v", e.Err)
	}
	return fmt.Sprintf("address error %q: %v", e.Addr, e.Err)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}

// ============================================================================
//                              DialError - 拨号错误
// ============================================================================

// DialError 出站连接失败
//
// 通过 DialFailure 事件上报，从不终止 Swarm。
type DialError struct {
	Kind DialErrorKind
	Addr Multiaddr
	Err  error
}

// NewDialError 创建拨号错误
func NewDialError(kind DialErrorKind, addr Multiaddr, err error) *DialError {
	return &DialError{Kind: kind, Addr: addr, Err: err}
}

func (e *DialError) Error() string {
	msg := "dial failed: " + e.Kind.String()
	if e.Addr != nil {
		msg += " (" + e.Addr.String() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DialError) Unwrap() error {
	return e.Err
}

// IsDialErrorKind 检查错误链中是否存在指定分类的 DialError
func IsDialErrorKind(err error, kind DialErrorKind) bool {
	var de *DialError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// ============================================================================
//                              ListenError - 入站错误
// ============================================================================

// ListenError 入站连接失败
type ListenError struct {
	Kind ListenErrorKind
	Err  error
}

// NewListenError 创建入站错误
func NewListenError(kind ListenErrorKind, err error) *ListenError {
	return &ListenError{Kind: kind, Err: err}
}

func (e *ListenError) Error() string {
	msg := "incoming connection failed: " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ListenError) Unwrap() error {
	return e.Err
}

// ============================================================================
//                              HandlerError - 处理器错误
// ============================================================================

// HandlerError 处理器报告的协议错误
//
// errors.Is(err, ErrHandler) 总是成立。
type HandlerError struct {
	Protocol ProtocolID
	Err      error
}

func (e *HandlerError) Error() string {
	if e.Protocol == "" {
		return fmt.Sprintf("handler error: %v", e.Err)
	}
	return fmt.Sprintf("handler error (%s): %v", e.Protocol, e.Err)
}

func (e *HandlerError) Unwrap() []error {
	return []error{ErrHandler, e.Err}
}

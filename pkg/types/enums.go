package types

// ============================================================================
//                              Direction - 连接方向
// ============================================================================

// Direction 连接方向
type Direction int

const (
	// DirUnknown 未知方向
	DirUnknown Direction = iota
	// DirInbound 入站连接
	DirInbound
	// DirOutbound 出站连接
	DirOutbound
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              CloseReason - 连接关闭原因
// ============================================================================

// CloseReason 连接关闭原因
type CloseReason int

const (
	// CloseReasonUnknown 未知原因
	CloseReasonUnknown CloseReason = iota
	// CloseReasonLocal 本地主动关闭（Close/DisconnectPeer）
	CloseReasonLocal
	// CloseReasonIO 对端关闭或 I/O 失败
	CloseReasonIO
	// CloseReasonHandler 处理器报告协议错误
	CloseReasonHandler
	// CloseReasonKeepAliveTimeout 所有处理器空闲超时
	CloseReasonKeepAliveTimeout
	// CloseReasonHandlerDone 所有处理器正常结束
	CloseReasonHandlerDone
	// CloseReasonShutdown Swarm 关闭
	CloseReasonShutdown
)

// String 返回关闭原因的字符串表示
func (r CloseReason) String() string {
	switch r {
	case CloseReasonLocal:
		return "local close"
	case CloseReasonIO:
		return "io error"
	case CloseReasonHandler:
		return "handler error"
	case CloseReasonKeepAliveTimeout:
		return "keep-alive timeout"
	case CloseReasonHandlerDone:
		return "handler done"
	case CloseReasonShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              DialErrorKind - 拨号失败分类
// ============================================================================

// DialErrorKind 拨号失败分类
type DialErrorKind int

const (
	// DialErrorUnknown 未分类错误
	DialErrorUnknown DialErrorKind = iota
	// DialErrorAddressUnsupported 没有 Transport 能路由该地址
	DialErrorAddressUnsupported
	// DialErrorAddressUnreachable 传输层连接失败
	DialErrorAddressUnreachable
	// DialErrorNegotiationFailed 协议协商失败（无共同协议或对端违反帧格式）
	DialErrorNegotiationFailed
	// DialErrorUpgradeFailed 安全握手或多路复用器建立失败
	DialErrorUpgradeFailed
	// DialErrorWrongPeer 对端身份与期望的 PeerID 不符
	DialErrorWrongPeer
	// DialErrorLocalPeer 拨号到本地节点
	DialErrorLocalPeer
	// DialErrorLimitExceeded 超出连接数限制
	DialErrorLimitExceeded
	// DialErrorCancelled 拨号在完成前被取消
	DialErrorCancelled
	// DialErrorDenied 被 Behaviour 拒绝
	DialErrorDenied
	// DialErrorNoAddresses 没有可拨号的地址
	DialErrorNoAddresses
	// DialErrorAborted Swarm 关闭导致放弃
	DialErrorAborted
)

// String 返回拨号失败分类的字符串表示
func (k DialErrorKind) String() string {
	switch k {
	case DialErrorAddressUnsupported:
		return "address unsupported"
	case DialErrorAddressUnreachable:
		return "address unreachable"
	case DialErrorNegotiationFailed:
		return "negotiation failed"
	case DialErrorUpgradeFailed:
		return "upgrade failed"
	case DialErrorWrongPeer:
		return "wrong peer"
	case DialErrorLocalPeer:
		return "local peer"
	case DialErrorLimitExceeded:
		return "limit exceeded"
	case DialErrorCancelled:
		return "cancelled"
	case DialErrorDenied:
		return "denied"
	case DialErrorNoAddresses:
		return "no addresses"
	case DialErrorAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              ListenErrorKind - 入站失败分类
// ============================================================================

// ListenErrorKind 入站连接失败分类
type ListenErrorKind int

const (
	// ListenErrorUnknown 未分类错误
	ListenErrorUnknown ListenErrorKind = iota
	// ListenErrorLimitExceeded 超出连接数限制，立即拒绝
	ListenErrorLimitExceeded
	// ListenErrorNegotiationFailed 协议协商失败
	ListenErrorNegotiationFailed
	// ListenErrorUpgradeFailed 安全握手或多路复用器建立失败
	ListenErrorUpgradeFailed
	// ListenErrorLocalPeer 对端使用了本地节点身份
	ListenErrorLocalPeer
	// ListenErrorCancelled 升级在完成前被取消
	ListenErrorCancelled
	// ListenErrorDenied 被 Behaviour 拒绝
	ListenErrorDenied
	// ListenErrorAborted Swarm 关闭导致放弃
	ListenErrorAborted
)

// String 返回入站失败分类的字符串表示
func (k ListenErrorKind) String() string {
	switch k {
	case ListenErrorLimitExceeded:
		return "limit exceeded"
	case ListenErrorNegotiationFailed:
		return "negotiation failed"
	case ListenErrorUpgradeFailed:
		return "upgrade failed"
	case ListenErrorLocalPeer:
		return "local peer"
	case ListenErrorCancelled:
		return "cancelled"
	case ListenErrorDenied:
		return "denied"
	case ListenErrorAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

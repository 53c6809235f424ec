package negotiate

import "errors"

var (
	// ErrNoProtocols 本地协议列表为空
	ErrNoProtocols = errors.New("negotiate: no protocols")

	// ErrNegotiationFailed 协商失败
	ErrNegotiationFailed = errors.New("negotiate: negotiation failed")

	// ErrNoCommonProtocol 双方没有共同支持的协议
	ErrNoCommonProtocol = errors.New("negotiate: no common protocol")
)

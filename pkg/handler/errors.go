package handler

import "errors"

var (
	// ErrDuplicateKey 组合中出现重复的 Key
	ErrDuplicateKey = errors.New("handler: duplicate key")

	// ErrDuplicateProtocol 两个子 Handler 监听同一协议
	ErrDuplicateProtocol = errors.New("handler: protocol claimed by more than one handler")

	// ErrNoHandlers 组合为空
	ErrNoHandlers = errors.New("handler: no handlers")

	// ErrSubstreamBusy 子流上已有同方向的操作在进行
	ErrSubstreamBusy = errors.New("handler: substream operation in flight")
)

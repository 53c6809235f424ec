package p2pcore

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ────────────────────────────────────────────────────────────────────────
	// 协议相关错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrPingDisabled 未启用 ping
	ErrPingDisabled = errors.New("ping disabled")

	// ErrReqRespDisabled 未启用请求/响应协议
	ErrReqRespDisabled = errors.New("request/response disabled")

	// ────────────────────────────────────────────────────────────────────────
	// 选项错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidOption 无效选项
	ErrInvalidOption = errors.New("invalid option")
)

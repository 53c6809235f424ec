package handler

import (
	"github.com/dep2p/go-p2pcore/pkg/interfaces"
	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Pending 没有进展
func Pending() interfaces.HandlerAction {
	return interfaces.HandlerAction{Kind: interfaces.ActionPending}
}

// OpenStream 请求打开出站子流，按顺序提议 protocols
//
// info 会随 FullyNegotiatedOutbound 或 DialUpgradeError 原样返回。
func OpenStream(info any, protocols ...types.ProtocolID) interfaces.HandlerAction {
	return interfaces.HandlerAction{
		Kind:      interfaces.ActionOpenStream,
		Protocols: protocols,
		Info:      info,
	}
}

// Notify 产生 Handler 事件
func Notify(ev any) interfaces.HandlerAction {
	return interfaces.HandlerAction{Kind: interfaces.ActionNotify, Event: ev}
}

// Close 以协议错误关闭连接
func Close(err error) interfaces.HandlerAction {
	return interfaces.HandlerAction{Kind: interfaces.ActionClose, Err: err}
}

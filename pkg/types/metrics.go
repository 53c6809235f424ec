package types

import "time"

// MetricsSnapshot 每个轮询周期结束时的状态快照
//
// 由 Swarm 原子发布，供外部指标采集器读取。
type MetricsSnapshot struct {
	// InstanceID Swarm 实例标识
	InstanceID string

	// Timestamp 快照时间
	Timestamp time.Time

	// Cycles 累计轮询周期数
	Cycles uint64

	// Established 已建立连接数
	Established int

	// PendingIncoming 入站 pending 连接数
	PendingIncoming int

	// PendingOutgoing 出站 pending 连接数
	PendingOutgoing int

	// Peers 已连接节点数
	Peers int

	// Listeners 活跃监听器数
	Listeners int

	// ActiveConnections 有在途子流的连接数
	ActiveConnections int

	// IdleConnections 无在途子流的连接数
	IdleConnections int

	// ClosingConnections 正在排空的连接数
	ClosingConnections int

	// PoolEventQueue Pool 待投递事件数
	PoolEventQueue int

	// SwarmEventQueue Swarm 待投递给嵌入方的事件数
	SwarmEventQueue int

	// CommandQueue 所有连接待投递命令总数
	CommandQueue int

	// ControlQueue 嵌入方控制命令队列深度
	ControlQueue int

	// DialFailures 累计拨号失败次数
	DialFailures uint64

	// IncomingRejected 累计因超限被拒的入站连接数
	IncomingRejected uint64
}

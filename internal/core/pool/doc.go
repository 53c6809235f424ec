// Package pool 实现连接池
//
// Pool 是连接与子流生命周期的唯一拥有者：
//   - pending 连接：拨号或入站升级在边缘 goroutine 中进行，结果通过
//     poll.Task 交回轮询线程
//   - 已建立连接：驱动该连接的 Handler、子流的打开/接受与协议协商、
//     空闲超时与关闭排空
//
// 所有方法都必须在同一个轮询线程中调用（由 Swarm 保证）。
// 边缘 goroutine 只通过每连接的 Waker 标记连接就绪，Poll 只处理就绪的连接。
//
// # 轮询顺序
//
// 每个周期按以下顺序处理工作：
//  1. 已完成的本地结果：取消、出站 pending 完成、关闭排空、出站子流协商完成
//  2. 进行中的本地工作：排队命令交给 Handler、轮询 Handler
//  3. 新的入站工作：入站 pending 完成、入站子流
//
// 每条连接每个周期最多产生一个 Handler 事件；事件队列已满时对应工作
// 推迟到队列腾出空间后再进行。
package pool

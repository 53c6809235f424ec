// Package poll 提供显式轮询状态机的基础原语
//
// p2pcore 的核心是一个单线程、协作式的轮询状态机：每个组件暴露
// Poll(cx) 方法，没有进展时返回 "pending" 并通过 cx.Waker() 登记唤醒，
// 而不是在函数中途阻塞。
//
// # 原语
//
//   - Waker / WakerFunc：唤醒回调
//   - Signal：容量为 1 的唤醒信号，驱动顶层循环
//   - AtomicWaker：边缘 goroutine 与轮询方之间的唤醒交接
//   - Context：一次 Poll 调用的上下文（Waker + Clock）
//   - Delay：可轮询的定时器
//   - Task：边缘 goroutine 中的一次性阻塞操作
//
// # 约定
//
// 返回 pending 的组件必须已经登记了某个未来会触发的唤醒源，
// 否则会永久挂起。所有唤醒都可以并发、重复调用。
package poll

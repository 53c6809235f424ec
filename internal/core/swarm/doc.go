// Package swarm 实现单线程轮询驱动的连接编排根
//
// Swarm 持有传输、连接池与组合后的 Behaviour，在一次 Poll 中按固定优先级
// 推进它们：
//
//  1. 嵌入方控制命令与被推迟的 Behaviour 动作
//  2. 连接池周期，Pool 事件交给 Behaviour 并排队给嵌入方
//  3. Behaviour 轮询，随后处理监听器送来的入站连接
//
// 一个周期没有任何进展时 Poll 返回未就绪，所有相关 Waker 已经登记；
// 连续有进展的周期数达到 PollBudget 时主动让出并自唤醒。
//
// # 线程模型
//
// Poll、Next、Run 以及 Dial、ListenOn 等嵌入方方法只能在同一个 goroutine
// 中调用。其他 goroutine 通过 Control() 返回的句柄提交命令，命令在下一个
// 周期的第 1 步执行。Metrics() 可以从任意 goroutine 调用。
//
// # 快速开始
//
//	s, err := swarm.New(cfg, id.PeerID(), transports, up, composed)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if _, err := s.ListenOn(addr); err != nil {
//	    return err
//	}
//	return s.Run(ctx, func(ev types.SwarmEvent) {
//	    logger.Info("事件", "event", ev)
//	})
package swarm

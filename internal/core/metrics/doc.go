// Package metrics 导出 Swarm 状态指标
//
// Swarm 在每个轮询周期结束时原子发布 types.MetricsSnapshot，本包只读取
// 快照，不进入轮询线程：
//   - Collector 把快照转换为 Prometheus 指标（prometheus.Collector）
//   - SnapshotLogger 周期性把快照写入日志，便于离线分析
//
// # 快速开始
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewCollector("p2pcore", s))
//
//	sl := metrics.NewSnapshotLogger(s, clock.New())
//	sl.Start(time.Minute)
//	defer sl.Stop()
package metrics

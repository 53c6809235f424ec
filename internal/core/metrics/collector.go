package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-p2pcore/pkg/types"
)

// Source 快照来源，Swarm 与 swarm.Control 都实现了它
type Source interface {
	Metrics() types.MetricsSnapshot
}

// metric 一个由快照字段导出的指标
type metric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(types.MetricsSnapshot) float64
}

// Collector 把 Swarm 快照导出为 Prometheus 指标
//
// 每次采集读取一次快照，所有指标带 instance 标签。
type Collector struct {
	source  Source
	metrics []metric
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector 创建采集器
func NewCollector(namespace string, source Source) *Collector {
	labels := []string{"instance"}
	gauge := func(name, help string, f func(types.MetricsSnapshot) float64) metric {
		return metric{
			desc:      prometheus.NewDesc(prometheus.BuildFQName(namespace, "swarm", name), help, labels, nil),
			valueType: prometheus.GaugeValue,
			value:     f,
		}
	}
	counter := func(name, help string, f func(types.MetricsSnapshot) float64) metric {
		m := gauge(name, help, f)
		m.valueType = prometheus.CounterValue
		return m
	}

	return &Collector{
		source: source,
		metrics: []metric{
			counter("poll_cycles_total", "轮询周期累计数",
				func(s types.MetricsSnapshot) float64 { return float64(s.Cycles) }),
			gauge("connections_established", "已建立连接数",
				func(s types.MetricsSnapshot) float64 { return float64(s.Established) }),
			gauge("connections_pending_incoming", "升级中的入站连接数",
				func(s types.MetricsSnapshot) float64 { return float64(s.PendingIncoming) }),
			gauge("connections_pending_outgoing", "进行中的出站拨号数",
				func(s types.MetricsSnapshot) float64 { return float64(s.PendingOutgoing) }),
			gauge("connections_active", "有在途工作的连接数",
				func(s types.MetricsSnapshot) float64 { return float64(s.ActiveConnections) }),
			gauge("connections_idle", "空闲连接数",
				func(s types.MetricsSnapshot) float64 { return float64(s.IdleConnections) }),
			gauge("connections_closing", "正在排空的连接数",
				func(s types.MetricsSnapshot) float64 { return float64(s.ClosingConnections) }),
			gauge("peers", "已连接节点数",
				func(s types.MetricsSnapshot) float64 { return float64(s.Peers) }),
			gauge("listeners", "活跃监听器数",
				func(s types.MetricsSnapshot) float64 { return float64(s.Listeners) }),
			gauge("pool_event_queue", "连接池待投递事件数",
				func(s types.MetricsSnapshot) float64 { return float64(s.PoolEventQueue) }),
			gauge("event_queue", "待交给嵌入方的事件数",
				func(s types.MetricsSnapshot) float64 { return float64(s.SwarmEventQueue) }),
			gauge("command_queue", "所有连接待投递命令数",
				func(s types.MetricsSnapshot) float64 { return float64(s.CommandQueue) }),
			gauge("control_queue", "控制命令队列深度",
				func(s types.MetricsSnapshot) float64 { return float64(s.ControlQueue) }),
			counter("dial_failures_total", "拨号失败累计数",
				func(s types.MetricsSnapshot) float64 { return float64(s.DialFailures) }),
			counter("incoming_rejected_total", "因超限被拒的入站连接累计数",
				func(s types.MetricsSnapshot) float64 { return float64(s.IncomingRejected) }),
		},
	}
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Metrics()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(snap), snap.InstanceID)
	}
}

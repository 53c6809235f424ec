package config

import "time"

// MetricsConfig 指标导出配置
type MetricsConfig struct {
	// Enable 启用 Prometheus 指标
	Enable bool `json:"enable"`

	// Namespace 指标名前缀
	Namespace string `json:"namespace"`

	// ListenAddr HTTP 导出地址（如 "127.0.0.1:9090"），为空不启动 HTTP 服务
	ListenAddr string `json:"listen_addr"`

	// SnapshotInterval 周期性输出状态快照日志的间隔，0 表示不输出
	SnapshotInterval Duration `json:"snapshot_interval"`
}

// DefaultMetricsConfig 默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enable:     false,
		Namespace:  "p2pcore",
		ListenAddr: "",

		SnapshotInterval: Duration(time.Minute),
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.Enable && c.Namespace == "" {
		return &FieldError{Field: "metrics.namespace", Reason: "must not be empty"}
	}
	if c.SnapshotInterval < 0 {
		return &FieldError{Field: "metrics.snapshot_interval", Reason: "must not be negative"}
	}
	return nil
}

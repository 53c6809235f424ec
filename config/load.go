package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// 环境变量
const (
	EnvPrefix = "P2PCORE_"

	EnvPreset         = "PRESET"
	EnvListenAddrs    = "LISTEN_ADDRS"
	EnvKeyFile        = "IDENTITY_KEY_FILE"
	EnvMaxConnections = "MAX_CONNECTIONS"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFile        = "LOG_FILE"
	EnvMetricsAddr    = "METRICS_ADDR"
)

// FromJSON 从 JSON 创建配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // 用户指定的配置文件路径
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return FromJSON(data)
}

// ToJSON 序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ApplyEnv 应用环境变量覆盖
//
// 优先级高于配置文件，低于命令行参数。支持的变量（P2PCORE_ 前缀）：
//   - P2PCORE_PRESET: 预设名称
//   - P2PCORE_LISTEN_ADDRS: 监听地址（逗号分隔）
//   - P2PCORE_IDENTITY_KEY_FILE: 身份密钥文件
//   - P2PCORE_MAX_CONNECTIONS: 连接总上限
//   - P2PCORE_LOG_LEVEL / P2PCORE_LOG_FILE: 日志
//   - P2PCORE_METRICS_ADDR: 指标导出地址（同时启用指标）
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if cfg == nil {
		return ErrNilConfig
	}
	get := func(name string) string { return strings.TrimSpace(getenv(EnvPrefix + name)) }

	if v := get(EnvPreset); v != "" {
		if err := ApplyPreset(cfg, v); err != nil {
			return err
		}
	}
	if v := get(EnvListenAddrs); v != "" {
		cfg.Transport.ListenAddrs = SplitAndTrim(v, ",")
	}
	if v := get(EnvKeyFile); v != "" {
		cfg.Identity.KeyFile = v
	}
	if v := get(EnvMaxConnections); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &FieldError{Field: EnvPrefix + EnvMaxConnections, Reason: err.Error()}
		}
		cfg.Pool.MaxConnections = n
	}
	if v := get(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := get(EnvLogFile); v != "" {
		cfg.Log.File = v
	}
	if v := get(EnvMetricsAddr); v != "" {
		cfg.Metrics.Enable = true
		cfg.Metrics.ListenAddr = v
	}
	return nil
}

// SplitAndTrim 分割字符串并去除空白项
func SplitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

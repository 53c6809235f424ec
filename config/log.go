package config

import "github.com/dep2p/go-p2pcore/pkg/lib/log"

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别：debug/info/warn/error
	Level string `json:"level"`

	// Format 输出格式：text/json
	Format string `json:"format"`

	// File 日志文件，为空输出到 stderr
	File string `json:"file"`
}

// DefaultLogConfig 默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: log.FormatText,
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	if _, err := log.ParseLevel(c.Level); err != nil {
		return &FieldError{Field: "log.level", Reason: err.Error()}
	}
	switch c.Format {
	case "", log.FormatText, log.FormatJSON:
		return nil
	default:
		return &FieldError{Field: "log.format", Reason: "must be text or json"}
	}
}

// Options 转换为日志包配置
func (c LogConfig) Options() log.Options {
	return log.Options{Level: c.Level, Format: c.Format, File: c.File}
}

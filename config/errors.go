package config

import (
	"errors"
	"strconv"
)

var (
	// ErrNilConfig 配置为 nil
	ErrNilConfig = errors.New("config is nil")

	// ErrUnknownPreset 未知预设
	ErrUnknownPreset = errors.New("unknown preset")
)

// FieldError 字段校验失败
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return "invalid config " + e.Field + ": " + e.Reason
}

func positive(field string, v int) error {
	if v <= 0 {
		return &FieldError{Field: field, Reason: "must be positive"}
	}
	return nil
}

func positiveDuration(field string, d Duration) error {
	if d <= 0 {
		return &FieldError{Field: field, Reason: "must be positive"}
	}
	return nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

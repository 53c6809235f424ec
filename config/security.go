package config

import "time"

// SecurityConfig 安全传输配置
//
// 协商时按 Noise、Plaintext 的顺序提议。
type SecurityConfig struct {
	// EnableNoise 启用 Noise XX
	EnableNoise bool `json:"enable_noise"`

	// EnablePlaintext 启用明文身份交换（仅用于测试）
	EnablePlaintext bool `json:"enable_plaintext"`

	// HandshakeTimeout 协商与握手的总超时
	HandshakeTimeout Duration `json:"handshake_timeout"`
}

// DefaultSecurityConfig 默认安全配置
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		EnableNoise:      true,
		EnablePlaintext:  false,
		HandshakeTimeout: Duration(15 * time.Second),
	}
}

// Validate 验证安全配置
func (c SecurityConfig) Validate() error {
	if !c.EnableNoise && !c.EnablePlaintext {
		return &FieldError{Field: "security", Reason: "at least one security protocol must be enabled"}
	}
	return positiveDuration("security.handshake_timeout", c.HandshakeTimeout)
}

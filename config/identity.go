package config

// IdentityConfig 身份配置
type IdentityConfig struct {
	// KeyFile Ed25519 私钥文件路径，为空时在内存中生成临时密钥
	KeyFile string `json:"key_file"`

	// AutoGenerate 密钥文件不存在时自动生成并保存
	AutoGenerate bool `json:"auto_generate"`
}

// DefaultIdentityConfig 默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		KeyFile:      "",
		AutoGenerate: true,
	}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	if c.KeyFile == "" && !c.AutoGenerate {
		return &FieldError{Field: "identity", Reason: "key_file is empty and auto_generate is disabled"}
	}
	return nil
}

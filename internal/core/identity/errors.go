package identity

import "errors"

var (
	// ErrInvalidKeySize 无效的密钥大小
	ErrInvalidKeySize = errors.New("identity: invalid key size")

	// ErrInvalidPEM 无效的 PEM 数据
	ErrInvalidPEM = errors.New("identity: invalid PEM data")

	// ErrKeyNotFound 密钥文件不存在
	ErrKeyNotFound = errors.New("identity: key not found")

	// ErrNoIdentity 既没有密钥文件也不允许自动生成
	ErrNoIdentity = errors.New("identity: no key file and auto generate disabled")
)

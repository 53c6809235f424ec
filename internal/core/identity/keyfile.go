package identity

import (
	"crypto/ed25519"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const pemTypeEd25519Private = "ED25519 PRIVATE KEY"

// SaveKeyFile 把私钥保存为 PEM 文件
//
// 临时文件 + rename，权限 0600。
func SaveKeyFile(id *Identity, path string) error {
	data := pem.EncodeToMemory(&pem.Block{
		Type:  pemTypeEd25519Private,
		Bytes: id.priv,
	})
	return atomicWriteFile(path, data, 0600)
}

// LoadKeyFile 从 PEM 文件加载身份
func LoadKeyFile(path string) (*Identity, error) {
	data, err := os.ReadFile(path) //nolint:gosec // 用户指定的密钥路径
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypeEd25519Private {
		return nil, ErrInvalidPEM
	}
	if len(block.Bytes) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	return New(ed25519.PrivateKey(block.Bytes))
}

// LoadOrGenerate 加载密钥文件，不存在且 autoGenerate 时生成并保存
//
// path 为空时生成临时身份（不保存）。
func LoadOrGenerate(path string, autoGenerate bool) (*Identity, bool, error) {
	if path == "" {
		if !autoGenerate {
			return nil, false, ErrNoIdentity
		}
		id, err := Generate()
		return id, true, err
	}

	id, err := LoadKeyFile(path)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, ErrKeyNotFound) || !autoGenerate {
		return nil, false, err
	}

	id, err = Generate()
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, false, fmt.Errorf("创建密钥目录失败: %w", err)
	}
	if err := SaveKeyFile(id, path); err != nil {
		return nil, false, err
	}
	return id, true, nil
}

// atomicWriteFile 原子写文件
//
// 任何步骤失败时目标文件保持不变。
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("同步临时文件失败: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("设置文件权限失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("原子 rename 失败: %w", err)
	}
	ok = true
	return nil
}

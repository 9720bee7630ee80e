package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"txt2tube/internal/pkg/storage"
)

// LocalStorage 本地完成目录
type LocalStorage struct {
	basePath string // 完成目录
}

// NewLocalStorage 创建本地完成目录存储（目录在首次归档时创建）
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		return nil, errors.New("local storage base path is required")
	}
	return &LocalStorage{basePath: basePath}, nil
}

// BasePath 完成目录
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Archive 移动文件到完成目录
func (s *LocalStorage) Archive(ctx context.Context, srcPath, key string) (string, error) {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create done directory: %w", err)
	}

	name, err := storage.UniqueName(key, func(k string) (bool, error) {
		return s.Exists(ctx, k)
	})
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.basePath, name)

	if err := os.Rename(srcPath, dst); err == nil {
		return dst, nil
	}

	// 跨设备时退回复制后删除
	if err := copyFile(srcPath, dst); err != nil {
		os.Remove(dst) // 删除失败的文件
		return "", fmt.Errorf("failed to move %s: %w", srcPath, err)
	}
	if err := os.Remove(srcPath); err != nil {
		return "", fmt.Errorf("failed to remove source file: %w", err)
	}
	return dst, nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetStorageType 获取存储类型
func (s *LocalStorage) GetStorageType() string {
	return string(storage.StorageTypeLocal)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Storage 完成区存储接口
// 上传成功后，视频及其配套文件被移入完成区，源文件不再保留
type Storage interface {
	// Archive 把本地文件移入完成区，key 为目标名，重名时自动追加 (1)、(2)…
	// 返回最终位置（本地路径或对象地址）
	Archive(ctx context.Context, srcPath, key string) (string, error)

	// Exists 检查完成区中是否已有同名文件
	Exists(ctx context.Context, key string) (bool, error)

	// GetStorageType 获取存储类型
	GetStorageType() string
}

// StorageType 存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local" // 本地目录
	StorageTypeOSS   StorageType = "oss"   // 阿里云OSS
)

// UniqueName 返回完成区中不冲突的名字：name、base(1).ext、base(2).ext …
func UniqueName(name string, exists func(string) (bool, error)) (string, error) {
	ok, err := exists(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return name, nil
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		cand := fmt.Sprintf("%s(%d)%s", base, i, ext)
		ok, err := exists(cand)
		if err != nil {
			return "", err
		}
		if !ok {
			return cand, nil
		}
	}
}

// ContentType 根据文件扩展名获取Content-Type
func ContentType(filename string) string {
	contentTypes := map[string]string{
		".txt": "text/plain; charset=utf-8",
		".srt": "application/x-subrip",
		".mp4": "video/mp4",
		".mp3": "audio/mpeg",
		".jpg": "image/jpeg",
	}
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

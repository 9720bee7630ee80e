package oss

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"txt2tube/internal/pkg/storage"
)

// OSSStorage 阿里云OSS完成区
type OSSStorage struct {
	bucket     *oss.Bucket
	bucketName string
	prefix     string // 对象键前缀
}

// NewOSSStorage 创建阿里云OSS存储
func NewOSSStorage(endpoint, bucketName, accessKeyID, accessKeySecret, prefix string) (*OSSStorage, error) {
	// 创建OSS客户端
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	// 获取Bucket
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSStorage{
		bucket:     bucket,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
	}, nil
}

// Archive 上传文件到 OSS，成功后删除本地文件
func (s *OSSStorage) Archive(ctx context.Context, srcPath, key string) (string, error) {
	name, err := storage.UniqueName(key, func(k string) (bool, error) {
		return s.Exists(ctx, k)
	})
	if err != nil {
		return "", err
	}

	objectKey := s.objectKey(name)
	if err := s.bucket.PutObjectFromFile(objectKey, srcPath, oss.ContentType(storage.ContentType(name))); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	if err := os.Remove(srcPath); err != nil {
		return "", fmt.Errorf("failed to remove local file: %w", err)
	}

	return fmt.Sprintf("oss://%s/%s", s.bucketName, objectKey), nil
}

// Exists 检查文件是否存在
func (s *OSSStorage) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.bucket.IsObjectExist(s.objectKey(key))
	if err != nil {
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return exists, nil
}

// GetStorageType 获取存储类型
func (s *OSSStorage) GetStorageType() string {
	return string(storage.StorageTypeOSS)
}

func (s *OSSStorage) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

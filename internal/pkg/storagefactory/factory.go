package storagefactory

import (
	"context"
	"fmt"
	"path/filepath"

	"txt2tube/internal/config"
	"txt2tube/internal/pkg/storage"
	"txt2tube/internal/pkg/storage/local"
	"txt2tube/internal/pkg/storage/oss"
)

// DefaultDoneDir 默认完成目录名
const DefaultDoneDir = "done"

// NewStorage 根据配置创建完成区存储
// 本地目录为相对路径时按 baseDir（视频所在目录）解析
func NewStorage(ctx context.Context, cfg *config.StorageConfig, baseDir string) (storage.Storage, error) {
	switch cfg.Type {
	case "", "local":
		basePath := DefaultDoneDir
		if cfg.Local != nil && cfg.Local.BasePath != "" {
			basePath = cfg.Local.BasePath
		}
		if !filepath.IsAbs(basePath) {
			basePath = filepath.Join(baseDir, basePath)
		}
		return local.NewLocalStorage(basePath)
	case "oss":
		if cfg.OSS == nil {
			return nil, fmt.Errorf("OSS storage config is required")
		}
		return oss.NewOSSStorage(
			cfg.OSS.Endpoint,
			cfg.OSS.Bucket,
			cfg.OSS.AccessKeyID,
			cfg.OSS.AccessKeySecret,
			cfg.OSS.Prefix,
		)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

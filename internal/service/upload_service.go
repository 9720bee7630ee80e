package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"txt2tube/internal/config"
	"txt2tube/internal/model"
	"txt2tube/internal/pkg/metadata"
	"txt2tube/internal/pkg/storage"
	"txt2tube/internal/pkg/youtube"
)

var (
	ErrVideoNotFound = errors.New("未找到要上传的视频")
	ErrUnknownMode   = errors.New("未知的上传模式")
)

// ModeNone 不使用模式预设
const ModeNone = "none"

// Uploader 视频上传
type Uploader interface {
	Upload(ctx context.Context, path string, md model.UploadMetadata) (string, error)
}

// UploaderFactory 延迟创建上传器（dry run 时不做认证）
type UploaderFactory func(ctx context.Context) (Uploader, error)

// StorageFactory 按视频所在目录创建完成区存储
type StorageFactory func(ctx context.Context, baseDir string) (storage.Storage, error)

// Settings 一次上传的最终参数
type Settings struct {
	Prefix        string
	Tags          []string
	CategoryID    string
	PrivacyStatus model.PrivacyStatus
}

// Overrides 命令行显式指定的参数，nil 表示未指定
type Overrides struct {
	Prefix     *string
	Tags       *string // 逗号分隔
	CategoryID *string
}

// ResolveSettings 合并默认配置、模式预设与命令行参数，后者优先
func ResolveSettings(cfg config.UploadConfig, mode string, ov Overrides) (*Settings, error) {
	privacy, err := model.ParsePrivacyStatus(cfg.PrivacyStatus)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Prefix:        cfg.TitlePrefix,
		Tags:          append([]string(nil), cfg.Tags...),
		CategoryID:    cfg.CategoryID,
		PrivacyStatus: privacy,
	}

	if mode != "" && mode != ModeNone {
		preset, ok := cfg.Modes[mode]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
		}
		s.Prefix = preset.Prefix
		s.Tags = append([]string(nil), preset.Tags...)
		if preset.CategoryID != "" {
			s.CategoryID = preset.CategoryID
		}
	}

	if ov.Prefix != nil {
		s.Prefix = *ov.Prefix
	}
	if ov.Tags != nil {
		s.Tags = model.ParseTags(*ov.Tags)
	}
	if ov.CategoryID != nil {
		s.CategoryID = *ov.CategoryID
	}
	return s, nil
}

// ResolveVideoPath 视频路径优先级：--video > 位置参数 > 工作目录中最新的 mp4
func ResolveVideoPath(flagPath, positional, workDir string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if positional != "" {
		return positional, nil
	}
	latest, err := PickLatestMP4(workDir)
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", fmt.Errorf("%w: %s 中没有 mp4", ErrVideoNotFound, workDir)
	}
	log.Info().Str("video", latest).Msg("未指定视频，自动选择最新的 mp4")
	return latest, nil
}

// PickLatestMP4 返回目录中修改时间最新的 .mp4，没有时返回空串
func PickLatestMP4(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read dir %s: %w", dir, err)
	}

	var (
		latest  string
		latestT time.Time
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ".mp4") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestT) {
			latest, latestT = filepath.Join(dir, e.Name()), info.ModTime()
		}
	}
	return latest, nil
}

// UploadService 上传服务接口
type UploadService interface {
	// Upload 查找说明文本 -> 生成元数据 -> 上传 -> 移入完成区
	// 上传失败时返回包装了 youtube.ErrUploadFailed 的错误，文件保持原位
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
}

// UploadRequest 上传请求
type UploadRequest struct {
	VideoPath string
	Settings  *Settings
	Match     config.MatchConfig
	LooseTxt  bool
	Confirm   metadata.ConfirmFunc // 递归候选确认，nil 时自动采用最高分
	DryRun    bool
	NoMove    bool
}

// UploadResult 上传结果
type UploadResult struct {
	VideoPath    string
	MetadataPath string // 采用的说明文本，未找到时为空
	Strategy     metadata.Strategy
	Metadata     model.UploadMetadata
	VideoID      string
	URL          string
	Archived     []string // 完成区中的位置
}

type uploadService struct {
	newUploader UploaderFactory
	newStorage  StorageFactory
	extractor   *metadata.Extractor
	out         io.Writer
}

// NewUploadService 创建上传服务，out 接收面向操作者的摘要输出
func NewUploadService(
	newUploader UploaderFactory,
	newStorage StorageFactory,
	extractor *metadata.Extractor,
	out io.Writer,
) UploadService {
	if extractor == nil {
		extractor = metadata.NewExtractor(nil)
	}
	if out == nil {
		out = os.Stdout
	}
	return &uploadService{
		newUploader: newUploader,
		newStorage:  newStorage,
		extractor:   extractor,
		out:         out,
	}
}

func (s *uploadService) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	videoPath, err := filepath.Abs(req.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve video path: %w", err)
	}
	if info, err := os.Stat(videoPath); err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoPath)
	}
	result := &UploadResult{VideoPath: videoPath, Strategy: metadata.StrategyNone}

	// 1. 查找说明文本
	loose := req.Match.LooseThreshold
	if loose <= 0 {
		loose = metadata.DefaultLooseThreshold
	}
	threshold := metadata.EffectiveThreshold(req.Match.Threshold, req.LooseTxt, loose)
	resolver := metadata.NewResolver(metadata.Options{
		Threshold:  threshold,
		SearchRoot: req.Match.SearchRoot,
		Recursive:  req.Match.Recursive,
		Confirm:    req.Confirm,
		Limit:      req.Match.Limit,
		DebugLimit: req.Match.DebugLimit,
	})

	var res *metadata.Resolution
	err = runStage("resolve", "查找说明文本", func() error {
		var err error
		res, err = resolver.Resolve(videoPath)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 2. 生成元数据
	fallbackTitle := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	md := &metadata.Metadata{Title: fallbackTitle}
	if res.Found() {
		result.MetadataPath, result.Strategy = res.Path, res.Strategy
		md = s.extractor.Extract(res.Path, fallbackTitle)
	}

	result.Metadata = model.UploadMetadata{
		Title:         req.Settings.Prefix + md.Title,
		Description:   md.Description,
		Tags:          req.Settings.Tags,
		CategoryID:    req.Settings.CategoryID,
		PrivacyStatus: req.Settings.PrivacyStatus,
	}
	s.printSummary(result)

	if req.DryRun {
		fmt.Fprintln(s.out, "dry run：不执行上传")
		return result, nil
	}

	// 3. 上传
	uploader, err := s.newUploader(ctx)
	if err != nil {
		return nil, err
	}
	videoID, err := uploader.Upload(ctx, videoPath, result.Metadata)
	if err != nil {
		fmt.Fprintln(s.out, "上传失败（文件不移动）")
		return result, err
	}
	result.VideoID = videoID
	result.URL = youtube.WatchURLPrefix + videoID
	fmt.Fprintf(s.out, "上传完成: videoId=%s\n", videoID)
	fmt.Fprintf(s.out, "URL: %s\n", result.URL)

	// 4. 移入完成区
	if req.NoMove {
		return result, nil
	}
	archived, err := s.archive(ctx, videoPath, result.MetadataPath)
	result.Archived = archived
	if err != nil {
		return result, fmt.Errorf("archive: %w", err)
	}
	return result, nil
}

// archive 移动视频及配套文件，说明文本仅在与视频同目录时移动
func (s *uploadService) archive(ctx context.Context, videoPath, usedTxt string) ([]string, error) {
	dir := filepath.Dir(videoPath)
	st, err := s.newStorage(ctx, dir)
	if err != nil {
		return nil, err
	}

	var archived []string
	for _, p := range RelatedFiles(videoPath, usedTxt) {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		dst, err := st.Archive(ctx, p, filepath.Base(p))
		if err != nil {
			return archived, err
		}
		archived = append(archived, dst)
		log.Info().Str("file", filepath.Base(p)).Str("dst", dst).Msg("已移入完成区")
	}

	fmt.Fprintf(s.out, "文件移动完成: %d 个 (%s)\n", len(archived), st.GetStorageType())
	return archived, nil
}

// RelatedFiles 视频的配套文件：同名 mp4/txt/srt/mp3，以及同目录中采用的说明文本
func RelatedFiles(videoPath, usedTxt string) []string {
	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	files := []string{videoPath, base + ".txt", base + ".srt", base + ".mp3"}

	if usedTxt == "" {
		return files
	}
	usedAbs, err := filepath.Abs(usedTxt)
	if err != nil || usedAbs == base+".txt" {
		return files
	}
	if filepath.Dir(usedAbs) != filepath.Dir(videoPath) {
		log.Warn().Str("txt", usedAbs).Msg("说明文本不在视频目录中，不移动")
		return files
	}
	return append(files, usedAbs)
}

func (s *uploadService) printSummary(r *UploadResult) {
	w := s.out
	used := r.MetadataPath
	if used == "" {
		used = "无（使用文件名）"
	}
	tags := strings.Join(r.Metadata.Tags, ", ")
	if tags == "" {
		tags = "（无）"
	}

	fmt.Fprintf(w, "视频: %s\n", r.VideoPath)
	fmt.Fprintf(w, "  说明文本: %s\n", used)
	fmt.Fprintf(w, "  标题: %s\n", r.Metadata.Title)
	fmt.Fprintf(w, "  category_id: %s\n", r.Metadata.CategoryID)
	fmt.Fprintf(w, "  privacy: %s\n", r.Metadata.PrivacyStatus)
	fmt.Fprintf(w, "  tags: %s\n", tags)
	if r.Metadata.Description == "" {
		fmt.Fprintln(w, "  简介: （空）")
		return
	}
	fmt.Fprintln(w, "  简介（全文）:")
	fmt.Fprintln(w, "  --------------------")
	for _, line := range strings.Split(r.Metadata.Description, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintln(w, "  --------------------")
}

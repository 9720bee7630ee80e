// Package youtube 视频上传：OAuth 授权、分块续传、失败重试
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"txt2tube/internal/model"
)

const (
	// DefaultMaxRetries 默认最大重试次数
	DefaultMaxRetries = 8
	// WatchURLPrefix 视频观看地址前缀
	WatchURLPrefix = "https://www.youtube.com/watch?v="
)

// ErrUploadFailed 上传失败（不可重试或重试次数用尽）
var ErrUploadFailed = errors.New("upload failed")

// retriableStatus 可重试的 HTTP 状态码
var retriableStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// TransientError 可重试的临时错误
type TransientError struct {
	Status int // HTTP 状态码，非 API 错误时为 0
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transient upload error (http %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient upload error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// InsertFunc 执行一次完整的续传上传，返回视频 ID
type InsertFunc func(ctx context.Context, video *youtube.Video, media io.Reader, progress googleapi.ProgressUpdater) (string, error)

// Options 上传参数
type Options struct {
	MaxRetries   int
	ChunkSize    int // 字节，0 使用库默认值
	ShowProgress bool
}

// Client 上传客户端
type Client struct {
	insert       InsertFunc
	sleep        func(ctx context.Context, d time.Duration) error
	maxRetries   int
	showProgress bool
}

// NewClient 基于已授权的 HTTP 客户端创建上传客户端
func NewClient(ctx context.Context, httpClient *http.Client, opts Options) (*Client, error) {
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	chunkSize := opts.ChunkSize
	insert := func(ctx context.Context, video *youtube.Video, media io.Reader, progress googleapi.ProgressUpdater) (string, error) {
		var mediaOpts []googleapi.MediaOption
		if chunkSize > 0 {
			mediaOpts = append(mediaOpts, googleapi.ChunkSize(chunkSize))
		}
		call := svc.Videos.Insert([]string{"snippet", "status"}, video).
			Media(media, mediaOpts...).
			Context(ctx)
		if progress != nil {
			call = call.ProgressUpdater(progress)
		}
		v, err := call.Do()
		if err != nil {
			return "", err
		}
		return v.Id, nil
	}

	return newClient(insert, opts), nil
}

func newClient(insert InsertFunc, opts Options) *Client {
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Client{
		insert:       insert,
		sleep:        sleepContext,
		maxRetries:   maxRetries,
		showProgress: opts.ShowProgress,
	}
}

// Backoff 第 n 次重试前的等待时间：2^n + 0.2n 秒
func Backoff(n int) time.Duration {
	secs := math.Pow(2, float64(n)) + 0.2*float64(n)
	return time.Duration(math.Round(secs*1000)) * time.Millisecond
}

// IsRetriable 判断错误是否可重试
// API 错误只重试 500/502/503/504，其他错误（网络等）一律重试，上下文取消不重试
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retriableStatus[apiErr.Code]
	}
	return true
}

// Upload 上传视频，返回视频 ID
// 失败时返回包装了 ErrUploadFailed 的错误
func (c *Client) Upload(ctx context.Context, path string, md model.UploadMetadata) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       model.SafeTitle(md.Title),
			Description: md.Description,
			Tags:        md.Tags,
			CategoryId:  md.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: md.PrivacyStatus.String(),
		},
	}

	start := time.Now()
	progress := newProgressReporter(info.Size(), start)
	log.Info().Str("file", path).Int64("size", info.Size()).Msg("开始上传")

	for retry := 0; ; retry++ {
		id, err := c.attempt(ctx, path, video, progress)
		if err == nil {
			log.Info().
				Str("video_id", id).
				Str("elapsed", FormatElapsed(time.Since(start))).
				Msg("上传完成")
			return id, nil
		}

		if !IsRetriable(err) || retry >= c.maxRetries {
			log.Error().Err(err).Int("retries", retry).Msg("上传失败")
			return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}

		terr := classify(err)
		wait := Backoff(retry)
		log.Warn().
			Err(terr).
			Str("wait", fmt.Sprintf("%.1fs", wait.Seconds())).
			Str("elapsed", FormatElapsed(time.Since(start))).
			Msg("临时错误，等待后重试")

		if err := c.sleep(ctx, wait); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}
}

// attempt 每次重试重新打开文件，从头开始续传会话
func (c *Client) attempt(ctx context.Context, path string, video *youtube.Video, progress *progressReporter) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var updater googleapi.ProgressUpdater
	if c.showProgress {
		updater = progress.Update
	}
	return c.insert(ctx, video, f, updater)
}

func classify(err error) *TransientError {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &TransientError{Status: apiErr.Code, Err: err}
	}
	return &TransientError{Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Package ffmpeg 封装 ffmpeg / ffprobe 外部进程调用
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config FFmpeg 配置
type Config struct {
	FFmpegPath  string // 默认: ffmpeg
	FFprobePath string // 默认: ffprobe
}

// Client FFmpeg 客户端
// 用于封装 FFmpeg 命令调用
type Client struct {
	ffmpegPath  string
	ffprobePath string
}

// NewClient 创建 FFmpeg 客户端
func NewClient(config Config) *Client {
	ffmpegPath := config.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := config.FFprobePath
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Client{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// ProcessError 外部进程非零退出
// 调用方应视为没有产出可用的输出
type ProcessError struct {
	Program  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s failed (exit %d): %v", filepath.Base(e.Program), e.ExitCode, e.Err)
	if tail := lastLines(e.Stderr, 5); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// MediaInfo 媒体信息
type MediaInfo struct {
	Duration float64 // 时长（秒）
}

// MakeSilence 生成指定时长的静音 MP3（最短 0.01 秒）
func (c *Client) MakeSilence(ctx context.Context, seconds float64, outputPath string) error {
	d := max(0.01, seconds)
	args := []string{
		"-y",
		"-f", "lavfi", "-i", "anullsrc=r=24000:cl=mono",
		"-t", fmt.Sprintf("%.3f", d),
		"-c:a", "libmp3lame", "-q:a", "4",
		outputPath,
	}
	return c.run(ctx, c.ffmpegPath, args, nil)
}

// ConcatAudio 通过 concat demuxer 重新编码合并 MP3
// manifestPath 为清单文件路径，每行 file '<绝对路径>'
func (c *Client) ConcatAudio(ctx context.Context, inputs []string, manifestPath, outputPath string) error {
	if len(inputs) == 0 {
		return errors.New("no audio to concat")
	}
	if err := WriteConcatManifest(manifestPath, inputs); err != nil {
		return err
	}

	args := []string{
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", manifestPath,
		"-c:a", "libmp3lame", "-q:a", "2",
		outputPath,
	}
	if err := c.run(ctx, c.ffmpegPath, args, nil); err != nil {
		return err
	}

	log.Debug().
		Int("count", len(inputs)).
		Str("output", outputPath).
		Msg("音频合并成功")
	return nil
}

// WriteConcatManifest 写出 concat 清单
func WriteConcatManifest(path string, inputs []string) error {
	var buf bytes.Buffer
	for _, p := range inputs {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("get absolute path: %w", err)
		}
		fmt.Fprintf(&buf, "file '%s'\n", abs)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write concat list file: %w", err)
	}
	return nil
}

// MakeColorImage 生成纯色静态图（已存在时跳过）
func (c *Client) MakeColorImage(ctx context.Context, color string, width, height int, outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return nil
	}
	args := []string{
		"-y",
		"-f", "lavfi", "-i", fmt.Sprintf("color=c=%s:s=%dx%d", color, width, height),
		"-frames:v", "1",
		outputPath,
	}
	return c.run(ctx, c.ffmpegPath, args, nil)
}

// ComposeVideo 合成视频：背景 + 音轨 + 烧录字幕
// 失败时删除不完整的输出文件
func (c *Client) ComposeVideo(ctx context.Context, opts ComposeOptions) error {
	args, err := BuildComposeArgs(opts)
	if err != nil {
		return err
	}

	if err := c.run(ctx, c.ffmpegPath, args, os.Stderr); err != nil {
		_ = os.Remove(opts.OutputPath)
		return err
	}

	log.Info().
		Str("audio", opts.AudioPath).
		Str("subtitle", opts.SubtitlePath).
		Str("output", opts.OutputPath).
		Msg("视频合成成功")
	return nil
}

// GetMediaInfo 使用 ffprobe 获取时长
func (c *Client) GetMediaInfo(ctx context.Context, path string) (*MediaInfo, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, c.ffprobePath, args...)
	cmd.Stdout = &stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, newProcessError(c.ffprobePath, args, stderr.String(), err)
	}

	return ParseProbeOutput(stdout.Bytes())
}

// ParseProbeOutput 解析 ffprobe -of json 的输出
func ParseProbeOutput(data []byte) (*MediaInfo, error) {
	var out struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if out.Format.Duration == "" {
		return nil, errors.New("ffprobe output has no duration")
	}
	d, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}
	return &MediaInfo{Duration: d}, nil
}

// run 执行外部命令，stderr 始终被捕获，tee 非空时同时输出
func (c *Client) run(ctx context.Context, program string, args []string, tee io.Writer) error {
	start := time.Now()
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, program, args...)
	if tee != nil {
		cmd.Stderr = io.MultiWriter(&stderr, tee)
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		perr := newProcessError(program, args, stderr.String(), err)
		log.Error().
			Str("command", program+" "+strings.Join(args, " ")).
			Int("exit_code", perr.ExitCode).
			Msg("外部命令执行失败")
		return perr
	}

	log.Debug().
		Str("command", filepath.Base(program)).
		Dur("elapsed", time.Since(start)).
		Msg("外部命令执行完成")
	return nil
}

func newProcessError(program string, args []string, stderr string, err error) *ProcessError {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ProcessError{
		Program:  program,
		Args:     append([]string(nil), args...),
		ExitCode: code,
		Stderr:   stderr,
		Err:      err,
	}
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

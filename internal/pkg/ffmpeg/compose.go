package ffmpeg

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// SubtitleStyle 字幕样式（force_style）
type SubtitleStyle struct {
	FontName  string
	FontSize  int
	Alignment int
	MarginV   int
}

// ComposeOptions 视频合成参数
type ComposeOptions struct {
	AudioPath       string
	SubtitlePath    string // 应为临时目录中的安全文件名
	OutputPath      string
	Width           int
	Height          int
	FPS             int
	BackgroundImage string // 非空时循环静态图，否则用 lavfi 黑色画面
	Style           SubtitleStyle
	Duration        float64 // >0 时用 -t 限制输出时长
}

// EscapeFilterPath 转为滤镜可用的绝对路径：\ 换成 /，: 换成 \:
func EscapeFilterPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := strings.ReplaceAll(path, `\`, "/")
	return strings.ReplaceAll(p, ":", `\:`)
}

// BuildSubtitleFilter 构建 subtitles 滤镜
func BuildSubtitleFilter(srtPath string, style SubtitleStyle) string {
	font := strings.ReplaceAll(style.FontName, " ", `\ `)
	return fmt.Sprintf(
		"subtitles=filename='%s':charenc=UTF-8:force_style='FontName=%s,FontSize=%d,Alignment=%d,MarginV=%d'",
		EscapeFilterPath(srtPath), font, style.FontSize, style.Alignment, style.MarginV,
	)
}

// BuildComposeArgs 构建合成命令参数（不含程序名）
func BuildComposeArgs(opts ComposeOptions) ([]string, error) {
	if opts.AudioPath == "" || opts.SubtitlePath == "" || opts.OutputPath == "" {
		return nil, errors.New("compose: audio, subtitle and output paths are required")
	}

	args := []string{"-y"}
	if opts.BackgroundImage != "" {
		args = append(args, "-loop", "1", "-i", opts.BackgroundImage)
	} else {
		if opts.Width <= 0 || opts.Height <= 0 {
			return nil, fmt.Errorf("compose: invalid size %dx%d", opts.Width, opts.Height)
		}
		fps := opts.FPS
		if fps <= 0 {
			fps = 30
		}
		args = append(args, "-f", "lavfi", "-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%d", opts.Width, opts.Height, fps))
	}

	args = append(args,
		"-i", opts.AudioPath,
		"-vf", BuildSubtitleFilter(opts.SubtitlePath, opts.Style),
		"-c:v", "libx264",
	)
	if opts.BackgroundImage != "" {
		args = append(args, "-tune", "stillimage")
	}
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "192k",
		"-shortest",
	)
	if opts.Duration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", opts.Duration))
	}
	args = append(args, opts.OutputPath)

	return args, nil
}

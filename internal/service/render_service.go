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
	"txt2tube/internal/pkg/ffmpeg"
	"txt2tube/internal/pkg/id"
	"txt2tube/internal/pkg/jatext"
	"txt2tube/internal/pkg/subtitle"
	"txt2tube/internal/pkg/textenc"
	"txt2tube/internal/pkg/tts"
)

const (
	// ProfileStandard 横屏标准版
	ProfileStandard = "standard"
	// ProfileShort 竖屏短视频版
	ProfileShort = "short"
)

// Synthesizer 语音合成
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*tts.Result, error)
}

// Encoder 外部编码器
type Encoder interface {
	MakeSilence(ctx context.Context, seconds float64, outputPath string) error
	ConcatAudio(ctx context.Context, inputs []string, manifestPath, outputPath string) error
	MakeColorImage(ctx context.Context, color string, width, height int, outputPath string) error
	ComposeVideo(ctx context.Context, opts ffmpeg.ComposeOptions) error
	GetMediaInfo(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
}

// RenderService 文本转视频服务接口
type RenderService interface {
	// Render 文本 -> 分句 -> 逐句合成 -> 拼接音频 -> 字幕 -> 合成视频
	// 临时文件放在独立的运行目录中，无论成功失败都会删除
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
}

// RenderRequest 渲染请求
type RenderRequest struct {
	InputPath string // 输入文本
	Profile   string // standard / short，默认 standard
	OutputDir string // 为空时使用配置，配置也为空时输出到输入文件所在目录
}

// RenderResult 渲染结果
type RenderResult struct {
	RunID         string
	Sentences     int
	AudioPath     string
	SubtitlePath  string
	VideoPath     string
	Duration      float64 // 字幕时间轴累计时长
	VideoDuration float64 // ffprobe 得到的成片时长，探测失败时为 0
	Encoding      string  // 输入文本实际采用的编码
}

type renderService struct {
	cfg      config.RenderConfig
	synth    Synthesizer
	encoder  Encoder
	voices   tts.VoiceSelector
	decoder  *textenc.Decoder
	splitter *jatext.SentenceSplitter
}

// NewRenderService 创建渲染服务
func NewRenderService(
	cfg config.RenderConfig,
	synth Synthesizer,
	encoder Encoder,
	voices tts.VoiceSelector,
	decoder *textenc.Decoder,
) RenderService {
	if decoder == nil {
		decoder = textenc.NewDecoder()
	}
	return &renderService{
		cfg:      cfg,
		synth:    synth,
		encoder:  encoder,
		voices:   voices,
		decoder:  decoder,
		splitter: jatext.NewSentenceSplitter(cfg.MaxChunkChars),
	}
}

func (s *renderService) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	profileName := req.Profile
	if profileName == "" {
		profileName = ProfileStandard
	}
	profile, err := s.cfg.Profile(profileName)
	if err != nil {
		return nil, err
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.cfg.OutputDir
	}
	if outputDir == "" {
		outputDir = filepath.Dir(req.InputPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(req.InputPath), filepath.Ext(req.InputPath))
	base := filepath.Join(outputDir, stem)

	runID := id.NewRunID()
	scratchRoot := s.cfg.ScratchDir
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	scratch := filepath.Join(scratchRoot, "run-"+runID)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.Warn().Err(err).Str("scratch", scratch).Msg("清理临时目录失败")
			return
		}
		log.Debug().Str("scratch", scratch).Msg("临时目录已清理")
	}()

	log.Info().
		Str("run_id", runID).
		Str("input", req.InputPath).
		Str("profile", profileName).
		Str("output", base).
		Msg("开始渲染")

	result := &RenderResult{
		RunID:        runID,
		AudioPath:    base + ".mp3",
		SubtitlePath: base + ".srt",
		VideoPath:    base + ".mp4",
	}

	// 1. 读取并分句
	var sentences []string
	err = runStage("normalize", "分句", func() error {
		text, err := s.decoder.ReadFile(req.InputPath)
		if err != nil {
			return err
		}
		result.Encoding = text.Encoding
		sentences, err = s.splitter.Normalize(text.Text)
		return err
	})
	if err != nil {
		return nil, err
	}
	result.Sentences = len(sentences)
	log.Info().Int("sentences", len(sentences)).Str("encoding", result.Encoding).Msg("分句结果")

	// 2. 逐句合成（顺序执行）
	clips := make([]string, len(sentences))
	durations := make([]float64, len(sentences))
	err = runStage("synthesize", "语音合成", func() error {
		for i, sentence := range sentences {
			voice := s.voices.Choose(i, sentence)
			res, err := s.synth.Synthesize(ctx, sentence, voice)
			if err != nil {
				return fmt.Errorf("sentence %d: %w", i+1, err)
			}
			clips[i] = filepath.Join(scratch, fmt.Sprintf("s_%04d.mp3", i))
			if err := os.WriteFile(clips[i], res.AudioData, 0o644); err != nil {
				return fmt.Errorf("write clip: %w", err)
			}
			durations[i] = res.Duration
			log.Debug().
				Int("index", i+1).
				Str("voice", voice).
				Float64("duration", res.Duration).
				Msg("句子合成完成")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 3. 停顿：静音片段与字幕时间轴使用同一组数值
	pauses := make([]float64, len(sentences))
	if profile.InsertSilence {
		table := jatext.NewPauseTable(profile.Pauses, profile.DefaultPause)
		pauses = table.Pauses(sentences)
	}

	// 4. 拼接音频
	err = runStage("audio", "音频拼接", func() error {
		inputs := make([]string, 0, 2*len(clips))
		for i, clip := range clips {
			inputs = append(inputs, clip)
			if pauses[i] <= 0 {
				continue
			}
			silence := filepath.Join(scratch, fmt.Sprintf("p_%04d.mp3", i))
			if err := s.encoder.MakeSilence(ctx, pauses[i], silence); err != nil {
				return err
			}
			inputs = append(inputs, silence)
		}
		return s.encoder.ConcatAudio(ctx, inputs, filepath.Join(scratch, "concat.txt"), result.AudioPath)
	})
	if err != nil {
		return nil, err
	}

	// 5. 字幕
	var timeline *subtitle.Timeline
	err = runStage("subtitle", "字幕生成", func() error {
		mode := jatext.WrapMode(profile.WrapMode)
		wrap := func(sentence string) []string {
			return jatext.Wrap(sentence, profile.WrapChars, mode)
		}
		var err error
		timeline, err = subtitle.Build(sentences, durations, pauses, wrap)
		if err != nil {
			return err
		}
		return subtitle.WriteFile(result.SubtitlePath, timeline.Cues)
	})
	if err != nil {
		return nil, err
	}
	result.Duration = timeline.Total
	log.Info().
		Int("cues", len(timeline.Cues)).
		Str("total", subtitle.FormatTimestamp(timeline.Total)).
		Msg("字幕时间轴")

	// 6. 合成视频
	err = runStage("compose", "视频合成", func() error {
		// 滤镜中引用临时目录里的安全文件名
		subPath := filepath.Join(scratch, "sub.srt")
		if err := copyFile(result.SubtitlePath, subPath); err != nil {
			return err
		}

		opts := ffmpeg.ComposeOptions{
			AudioPath:    result.AudioPath,
			SubtitlePath: subPath,
			OutputPath:   base + ".part.mp4",
			Width:        profile.Width,
			Height:       profile.Height,
			FPS:          profile.FPS,
			Style: ffmpeg.SubtitleStyle{
				FontName:  profile.FontName,
				FontSize:  profile.FontSize,
				Alignment: profile.Alignment,
				MarginV:   profile.MarginV,
			},
		}
		if profile.BoundDuration {
			opts.Duration = timeline.Total
		}
		if profile.Background == "image" {
			img, err := s.backgroundImage(ctx, profile, outputDir)
			if err != nil {
				return err
			}
			opts.BackgroundImage = img
		}

		if err := s.encoder.ComposeVideo(ctx, opts); err != nil {
			return err
		}
		return os.Rename(opts.OutputPath, result.VideoPath)
	})
	if err != nil {
		return nil, err
	}

	info, err := s.encoder.GetMediaInfo(ctx, result.VideoPath)
	if err != nil {
		log.Warn().Err(err).Str("video", result.VideoPath).Msg("无法获取视频时长")
	} else {
		result.VideoDuration = info.Duration
		log.Info().
			Float64("video_duration", info.Duration).
			Float64("timeline_duration", timeline.Total).
			Msg("成片时长")
	}

	log.Info().
		Str("mp3", result.AudioPath).
		Str("srt", result.SubtitlePath).
		Str("mp4", result.VideoPath).
		Msg("渲染完成")

	return result, nil
}

// backgroundImage 静态背景图，不存在时生成黑色图片
func (s *renderService) backgroundImage(ctx context.Context, profile config.RenderProfile, outputDir string) (string, error) {
	img := profile.BackgroundImage
	if img == "" {
		img = fmt.Sprintf("bg_%dx%d.png", profile.Width, profile.Height)
	}
	if !filepath.IsAbs(img) {
		img = filepath.Join(outputDir, img)
	}
	if err := s.encoder.MakeColorImage(ctx, "black", profile.Width, profile.Height, img); err != nil {
		return "", err
	}
	return img, nil
}

// runStage 执行一个阶段并输出开始/结束状态行
func runStage(stage, label string, fn func() error) error {
	start := time.Now()
	log.Info().Str("stage", stage).Msg(label + "开始")

	if err := fn(); err != nil {
		var perr *ffmpeg.ProcessError
		ev := log.Error().Err(err).Str("stage", stage).Dur("elapsed", time.Since(start))
		if errors.As(err, &perr) {
			ev = ev.Int("exit_code", perr.ExitCode)
		}
		ev.Msg(label + "失败")
		return fmt.Errorf("%s: %w", stage, err)
	}

	log.Info().Str("stage", stage).Dur("elapsed", time.Since(start)).Msg(label + "完成")
	return nil
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

package config

import (
	"errors"
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	TTS     TTSConfig     `mapstructure:"tts"`
	FFmpeg  FFmpegConfig  `mapstructure:"ffmpeg"`
	Render  RenderConfig  `mapstructure:"render"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Match   MatchConfig   `mapstructure:"match"`
	Storage StorageConfig `mapstructure:"storage"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// TTSConfig 语音合成配置（Google Cloud Text-to-Speech）
type TTSConfig struct {
	CredentialsFile string   `mapstructure:"credentials_file"` // 服务账号 JSON
	LanguageCode    string   `mapstructure:"language_code"`    // 默认: ja-JP
	Voices          []string `mapstructure:"voices"`           // 候选声音，逐句随机选择
	SpeakingRate    float64  `mapstructure:"speaking_rate"`
}

// FFmpegConfig 外部编码器配置
type FFmpegConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
}

// RenderConfig 文本转视频配置
type RenderConfig struct {
	OutputDir     string                   `mapstructure:"output_dir"`      // 输出目录（mp3/srt/mp4）
	ScratchDir    string                   `mapstructure:"scratch_dir"`     // 临时目录根，运行结束后删除
	MaxChunkChars int                      `mapstructure:"max_chunk_chars"` // 单句最大字符数，超出后再切分
	Profiles      map[string]RenderProfile `mapstructure:"profiles"`
}

// RenderProfile 渲染模板（横屏标准版 / 竖屏短视频版）
type RenderProfile struct {
	Width           int                `mapstructure:"width"`
	Height          int                `mapstructure:"height"`
	FPS             int                `mapstructure:"fps"`
	WrapChars       int                `mapstructure:"wrap_chars"`
	WrapMode        string             `mapstructure:"wrap_mode"` // soft / fixed
	Pauses          map[string]float64 `mapstructure:"pauses"`    // 句末字符 -> 停顿秒数
	DefaultPause    float64            `mapstructure:"default_pause"`
	InsertSilence   bool               `mapstructure:"insert_silence"`
	Background      string             `mapstructure:"background"` // color / image
	BackgroundImage string             `mapstructure:"background_image"`
	FontName        string             `mapstructure:"font_name"`
	FontSize        int                `mapstructure:"font_size"`
	Alignment       int                `mapstructure:"alignment"`
	MarginV         int                `mapstructure:"margin_v"`
	BoundDuration   bool               `mapstructure:"bound_duration"` // 用累计时长限制视频长度（-t）
}

// UploadConfig 视频上传配置
type UploadConfig struct {
	CredentialsFile string                `mapstructure:"credentials_file"` // OAuth client secret
	TokenFile       string                `mapstructure:"token_file"`
	OAuthPort       int                   `mapstructure:"oauth_port"`
	OAuthTimeout    time.Duration         `mapstructure:"oauth_timeout"` // 等待浏览器授权的超时
	PrivacyStatus   string                `mapstructure:"privacy_status"`
	CategoryID      string                `mapstructure:"category_id"`
	TitlePrefix     string                `mapstructure:"title_prefix"`
	Tags            []string              `mapstructure:"tags"`
	MaxRetries      int                   `mapstructure:"max_retries"`
	ChunkSize       int                   `mapstructure:"chunk_size"`
	ShowProgress    bool                  `mapstructure:"show_progress"`
	NoMove          bool                  `mapstructure:"no_move"`
	Modes           map[string]ModePreset `mapstructure:"modes"`
}

// ModePreset 上传模式预设（前缀 / 标签 / 分类一起切换）
type ModePreset struct {
	Prefix     string   `mapstructure:"prefix"`
	Tags       []string `mapstructure:"tags"`
	CategoryID string   `mapstructure:"category_id"`
}

// MatchConfig 元数据文件匹配配置
type MatchConfig struct {
	Threshold      float64 `mapstructure:"threshold"`       // 默认 0.90
	LooseThreshold float64 `mapstructure:"loose_threshold"` // --loose-txt 时的上限，默认 0.80
	SearchRoot     string  `mapstructure:"search_root"`     // 递归搜索根目录
	Recursive      bool    `mapstructure:"recursive"`
	Confirm        bool    `mapstructure:"confirm"`
	Limit          int     `mapstructure:"limit"`       // 递归搜索候选上限
	DebugLimit     int     `mapstructure:"debug_limit"` // 同目录未命中时打印的候选数
}

// StorageConfig 完成区存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"` // 相对路径按视频所在目录解析
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	Prefix          string `mapstructure:"prefix"`            // 对象键前缀
}

// Profile 按名称获取渲染模板
func (c *RenderConfig) Profile(name string) (RenderProfile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return RenderProfile{}, fmt.Errorf("unknown render profile: %s", name)
	}
	return p, nil
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Render.MaxChunkChars <= 0 {
		return errors.New("render.max_chunk_chars must be positive")
	}
	for name, p := range c.Render.Profiles {
		if p.Width <= 0 || p.Height <= 0 {
			return fmt.Errorf("render profile %s: invalid size %dx%d", name, p.Width, p.Height)
		}
		if p.WrapChars <= 0 {
			return fmt.Errorf("render profile %s: wrap_chars must be positive", name)
		}
		switch p.Background {
		case "color", "image":
		default:
			return fmt.Errorf("render profile %s: background must be color/image", name)
		}
	}

	validPrivacy := map[string]bool{"public": true, "unlisted": true, "private": true}
	if !validPrivacy[c.Upload.PrivacyStatus] {
		return errors.New("invalid privacy status, must be public/unlisted/private")
	}
	if c.Upload.MaxRetries < 0 {
		return errors.New("upload.max_retries must not be negative")
	}

	if c.Match.Threshold < 0 || c.Match.Threshold > 1 {
		return errors.New("match.threshold must be within [0,1]")
	}

	return nil
}

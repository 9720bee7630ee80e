package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"txt2tube/internal/config"
	"txt2tube/internal/pkg/logger"
)

var (
	cfgFile string
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "txt2tube",
	Short: "txt2tube - Japanese text to narrated video, and uploader",
	Long: `txt2tube turns Japanese articles into narrated subtitle videos
(speech synthesis + ffmpeg) and uploads finished videos to YouTube with
metadata taken from a matching text file.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		".env file with TXT2TUBE_* variables (default: ./.env if present)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace/debug/info/warn/error/fatal)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (json/console)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	// .env 只补充尚未设置的环境变量
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load env file: %v\n", err)
			os.Exit(1)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.txt2tube")
	}

	// 环境变量设置
	viper.SetEnvPrefix("TXT2TUBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// TTS
	viper.SetDefault("tts.credentials_file", "")
	viper.SetDefault("tts.language_code", "ja-JP")
	viper.SetDefault("tts.voices", []string{"ja-JP-Standard-A", "ja-JP-Wavenet-A"})
	viper.SetDefault("tts.speaking_rate", 0.0)

	// FFmpeg
	viper.SetDefault("ffmpeg.ffmpeg_path", "ffmpeg")
	viper.SetDefault("ffmpeg.ffprobe_path", "ffprobe")

	// Render
	viper.SetDefault("render.output_dir", "")
	viper.SetDefault("render.scratch_dir", "")
	viper.SetDefault("render.max_chunk_chars", 160)
	setProfileDefaults("standard", map[string]any{
		"width":          1920,
		"height":         1080,
		"fps":            30,
		"wrap_chars":     25,
		"wrap_mode":      "soft",
		"pauses":         map[string]float64{"。": 0.25, "！": 0.20, "？": 0.20, "…": 0.18, "、": 0.12},
		"default_pause":  0.10,
		"insert_silence": true,
		"background":     "color",
		"font_name":      "MS Gothic",
		"font_size":      18,
		"alignment":      2,
		"margin_v":       80,
		"bound_duration": false,
	})
	setProfileDefaults("short", map[string]any{
		"width":            720,
		"height":           1280,
		"fps":              30,
		"wrap_chars":       13,
		"wrap_mode":        "fixed",
		"pauses":           map[string]float64{},
		"default_pause":    0.0,
		"insert_silence":   false,
		"background":       "image",
		"background_image": "black_720x1280.png",
		"font_name":        "Meiryo",
		"font_size":        16,
		"alignment":        2,
		"margin_v":         100,
		"bound_duration":   true,
	})

	// Upload
	viper.SetDefault("upload.credentials_file", "client_secret.json")
	viper.SetDefault("upload.token_file", "token.json")
	viper.SetDefault("upload.oauth_port", 8080)
	viper.SetDefault("upload.oauth_timeout", "5m")
	viper.SetDefault("upload.privacy_status", "public")
	viper.SetDefault("upload.category_id", "22")
	viper.SetDefault("upload.title_prefix", "【歌手】")
	viper.SetDefault("upload.tags", []string{"自動アップロード", "YouTube API"})
	viper.SetDefault("upload.max_retries", 8)
	viper.SetDefault("upload.chunk_size", 8*1024*1024)
	viper.SetDefault("upload.show_progress", true)
	viper.SetDefault("upload.no_move", false)
	viper.SetDefault("upload.modes", map[string]any{
		"joyuu": map[string]any{
			"prefix":      "【女優】",
			"tags":        []string{"女優", "昭和", "映画", "日本文化"},
			"category_id": "22",
		},
		"kashu": map[string]any{
			"prefix":      "【歌手】",
			"tags":        []string{"歌手", "音楽", "昭和歌謡"},
			"category_id": "10",
		},
		"kankyou": map[string]any{
			"prefix":      "【環境】",
			"tags":        []string{"環境問題", "社会", "記録", "日本"},
			"category_id": "25",
		},
		"yakuza": map[string]any{
			"prefix":      "【任侠】【渡世】",
			"tags":        []string{"裏社会", "昭和史", "ノンフィクション"},
			"category_id": "22",
		},
	})

	// Match
	viper.SetDefault("match.threshold", 0.90)
	viper.SetDefault("match.loose_threshold", 0.80)
	viper.SetDefault("match.search_root", "")
	viper.SetDefault("match.recursive", true)
	viper.SetDefault("match.confirm", false)
	viper.SetDefault("match.limit", 10)
	viper.SetDefault("match.debug_limit", 5)

	// Storage
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "done")
}

func setProfileDefaults(name string, values map[string]any) {
	for k, v := range values {
		viper.SetDefault("render.profiles."+name+"."+k, v)
	}
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}

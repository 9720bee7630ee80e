package tts

import (
	"context"
	"errors"
	"fmt"
	"os"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// ErrCredentials 缺少语音合成凭据
var ErrCredentials = errors.New("tts credentials file not found")

// DefaultLanguageCode 默认语言
const DefaultLanguageCode = "ja-JP"

// Config TTS 配置
type Config struct {
	CredentialsFile string  // 服务账号 JSON，为空时使用应用默认凭据
	LanguageCode    string  // 默认: ja-JP
	SpeakingRate    float64 // 0 表示使用服务端默认语速
}

// Client Google Cloud Text-to-Speech 客户端封装
type Client struct {
	client       *texttospeech.Client
	languageCode string
	speakingRate float64
}

// NewClient 创建 TTS 客户端
func NewClient(ctx context.Context, config Config) (*Client, error) {
	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		if _, err := os.Stat(config.CredentialsFile); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCredentials, config.CredentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create texttospeech client: %w", err)
	}

	languageCode := config.LanguageCode
	if languageCode == "" {
		languageCode = DefaultLanguageCode
	}

	return &Client{
		client:       client,
		languageCode: languageCode,
		speakingRate: config.SpeakingRate,
	}, nil
}

// Close 关闭底层连接
func (c *Client) Close() error {
	return c.client.Close()
}

// Result TTS生成结果
type Result struct {
	AudioData []byte  // MP3 数据
	Duration  float64 // 音频时长（秒），由 MP3 帧计算
	Voice     string  // 实际使用的声音
}

// Synthesize 合成一句话，返回 MP3 数据与时长
func (c *Client) Synthesize(ctx context.Context, text, voice string) (*Result, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: c.languageCode,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  c.speakingRate,
		},
	}

	log.Debug().
		Str("voice", voice).
		Str("text", text).
		Msg("sending TTS request")

	resp, err := c.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}

	duration, err := MP3Duration(resp.GetAudioContent())
	if err != nil {
		return nil, fmt.Errorf("decode synthesized audio: %w", err)
	}

	return &Result{
		AudioData: resp.GetAudioContent(),
		Duration:  duration,
		Voice:     voice,
	}, nil
}

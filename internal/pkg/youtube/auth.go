package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"

	"txt2tube/internal/pkg/id"
	"txt2tube/internal/server"
)

// ErrAuthentication 凭据缺失或无效
var ErrAuthentication = errors.New("youtube authentication failed")

// DefaultOAuthPort 本地回调端口
const DefaultOAuthPort = 8080

// AuthConfig OAuth 配置
type AuthConfig struct {
	CredentialsFile string        // OAuth client secret JSON
	TokenFile       string        // 令牌缓存文件
	Port            int           // 本地回调端口
	Timeout         time.Duration // 等待浏览器授权的超时，0 表示不限
}

// Authenticate 获取已授权的 HTTP 客户端
// 令牌有效时直接使用；过期且有 refresh token 时刷新；否则走本地回环授权流程。新令牌写回 TokenFile
func Authenticate(ctx context.Context, cfg AuthConfig) (*http.Client, error) {
	conf, err := loadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := LoadToken(cfg.TokenFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("token_file", cfg.TokenFile).Msg("令牌文件无法读取，重新授权")
	}

	switch {
	case tok != nil && tok.Valid():
		return conf.Client(ctx, tok), nil

	case tok != nil && tok.RefreshToken != "":
		fresh, err := conf.TokenSource(ctx, tok).Token()
		if err != nil {
			return nil, fmt.Errorf("%w: refresh token: %v", ErrAuthentication, err)
		}
		tok = fresh

	default:
		tok, err = runLoopbackFlow(ctx, conf, cfg)
		if err != nil {
			return nil, err
		}
	}

	if err := SaveToken(cfg.TokenFile, tok); err != nil {
		log.Warn().Err(err).Str("token_file", cfg.TokenFile).Msg("保存令牌失败")
	}
	return conf.Client(ctx, tok), nil
}

func loadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("%w: credentials file is not configured", ErrAuthentication)
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: credentials file not found: %s", ErrAuthentication, credentialsFile)
	}
	conf, err := google.ConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parse credentials file: %v", ErrAuthentication, err)
	}
	return conf, nil
}

// runLoopbackFlow 启动本地回调服务器，引导用户在浏览器中授权
func runLoopbackFlow(ctx context.Context, conf *oauth2.Config, cfg AuthConfig) (*oauth2.Token, error) {
	port := cfg.Port
	if port <= 0 {
		port = DefaultOAuthPort
	}
	conf.RedirectURL = fmt.Sprintf("http://localhost:%d/", port)

	state := id.NewState()
	srv := server.New(state)
	if _, err := srv.Start(fmt.Sprintf("localhost:%d", port)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	url := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("请在浏览器中打开以下链接完成授权:\n%s\n", url)
	log.Info().Int("port", port).Msg("等待浏览器授权")

	waitCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	code, err := srv.Wait(waitCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %v", ErrAuthentication, err)
	}
	return tok, nil
}

// LoadToken 读取令牌缓存
func LoadToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &tok, nil
}

// SaveToken 写出令牌缓存（仅当前用户可读）
func SaveToken(path string, tok *oauth2.Token) error {
	if path == "" {
		return nil
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Package server 本地回环 HTTP 服务，接收 OAuth 授权回调
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"txt2tube/internal/server/middleware"
)

// callbackResult 授权回调结果
type callbackResult struct {
	code string
	err  error
}

// Server 授权回调服务器
type Server struct {
	engine   *gin.Engine
	state    string
	resultCh chan callbackResult
	srv      *http.Server
}

// New 创建回调服务器实例，state 用于校验回调来源
func New(state string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		engine:   engine,
		state:    state,
		resultCh: make(chan callbackResult, 1),
	}
	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.Logger())

	s.engine.GET("/", s.handleCallback)
}

func (s *Server) handleCallback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		s.deliver(callbackResult{err: fmt.Errorf("authorization denied: %s", e)})
		c.String(http.StatusBadRequest, "授权被拒绝: %s", e)
		return
	}
	// state 不一致的请求直接拒绝，继续等待正确的回调
	if c.Query("state") != s.state {
		c.String(http.StatusBadRequest, "state 不匹配")
		return
	}
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "缺少 code 参数")
		return
	}

	s.deliver(callbackResult{code: code})
	c.String(http.StatusOK, "授权完成，可以关闭此页面。")
}

// deliver 只保留第一次回调结果
func (s *Server) deliver(r callbackResult) {
	select {
	case s.resultCh <- r:
	default:
	}
}

// Start 在 addr 上监听并后台提供服务，返回实际监听地址
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}

	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("callback server stopped")
		}
	}()

	return ln.Addr().String(), nil
}

// Wait 等待授权码
func (s *Server) Wait(ctx context.Context) (string, error) {
	select {
	case r := <-s.resultCh:
		return r.code, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown 关闭服务器
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

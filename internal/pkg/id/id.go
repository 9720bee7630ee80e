package id

import (
	"strings"

	"github.com/google/uuid"
)

// NewState 生成 OAuth state（去掉连字符的 UUID）
func NewState() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewRunID 生成一次流水线运行的短ID（用于临时目录命名）
func NewRunID() string {
	return NewState()[:12]
}

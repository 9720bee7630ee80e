package model

import (
	"fmt"
	"regexp"
	"strings"
)

// PrivacyStatus 视频公开范围
type PrivacyStatus string

const (
	PrivacyPublic   PrivacyStatus = "public"   // 公开
	PrivacyUnlisted PrivacyStatus = "unlisted" // 不公开列出
	PrivacyPrivate  PrivacyStatus = "private"  // 私有
)

// String 返回状态的字符串表示
func (p PrivacyStatus) String() string {
	return string(p)
}

// ParsePrivacyStatus 解析公开范围
func ParsePrivacyStatus(s string) (PrivacyStatus, error) {
	switch p := PrivacyStatus(strings.ToLower(strings.TrimSpace(s))); p {
	case PrivacyPublic, PrivacyUnlisted, PrivacyPrivate:
		return p, nil
	}
	return "", fmt.Errorf("invalid privacy status %q, must be public/unlisted/private", s)
}

// UploadMetadata 一次上传使用的元数据，构建后不再修改
type UploadMetadata struct {
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus PrivacyStatus
}

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// SafeTitle 去掉控制字符与首尾空白
func SafeTitle(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// ParseTags 解析逗号分隔的标签，忽略空项
func ParseTags(csv string) []string {
	var tags []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

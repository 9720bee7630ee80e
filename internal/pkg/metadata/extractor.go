package metadata

import (
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"txt2tube/internal/pkg/textenc"
)

// Metadata 从说明文本解析出的标题与简介
type Metadata struct {
	Title       string
	Description string
	Encoding    string // 解码采用的编码，未能解码时为空
}

// Extractor 说明文本解析器
type Extractor struct {
	decoder *textenc.Decoder
}

// NewExtractor 创建解析器
func NewExtractor(decoder *textenc.Decoder) *Extractor {
	if decoder == nil {
		decoder = textenc.NewDecoder()
	}
	return &Extractor{decoder: decoder}
}

// Extract 解析说明文本
// 第 1 行非空则为标题，否则第 2 行非空则为标题，都为空时返回 (fallbackTitle, "")
// 标题去掉【】，其余行拼接为简介。文件读取或解码失败时同样返回回退值
func (e *Extractor) Extract(path, fallbackTitle string) *Metadata {
	fallback := &Metadata{Title: fallbackTitle}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("txt", path).Msg("读取说明文本失败，使用文件名作为标题")
		return fallback
	}

	res, err := e.decoder.Decode(raw)
	if err != nil {
		if errors.Is(err, textenc.ErrUndecodable) {
			log.Warn().Str("txt", path).Msg("说明文本无法解码，使用文件名作为标题")
		}
		return fallback
	}

	md := Parse(SplitLines(res.Text), fallbackTitle)
	md.Encoding = res.Encoding
	return md
}

// Parse 按行解析标题与简介
func Parse(lines []string, fallbackTitle string) *Metadata {
	titleIndex := -1
	switch {
	case len(lines) >= 1 && strings.TrimSpace(lines[0]) != "":
		titleIndex = 0
	case len(lines) >= 2 && strings.TrimSpace(lines[1]) != "":
		titleIndex = 1
	default:
		return &Metadata{Title: fallbackTitle}
	}

	title := strings.TrimSpace(lines[titleIndex])
	title = strings.NewReplacer("【", "", "】", "").Replace(title)
	title = strings.TrimSpace(title)

	rest := make([]string, 0, len(lines)-1)
	for i, l := range lines {
		if i != titleIndex {
			rest = append(rest, l)
		}
	}

	return &Metadata{
		Title:       title,
		Description: strings.TrimSpace(strings.Join(rest, "\n")),
	}
}

// SplitLines 按 \r\n、\r、\n 分行，末尾换行不产生空行
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

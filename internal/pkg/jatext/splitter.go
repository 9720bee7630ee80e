// Package jatext 日文文本处理：分句、长句再切分、句末停顿推断、字幕折行
package jatext

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrEmptyInput 分句结果为空
var ErrEmptyInput = errors.New("no sentences found in input text")

const (
	// DefaultMaxChars 单句默认最大字符数（超过后再切分）
	DefaultMaxChars = 160
	// DefaultSoftRatio 在软断点切分时缓冲区至少达到 MaxChars 的比例
	DefaultSoftRatio = 0.6
	// TerminalMarks 句末标点
	TerminalMarks = "。！？"
	// SoftBreakMarks 长句切分时可作为断点的标点
	SoftBreakMarks = "、。！？"
)

// SentenceSplitter 分句器
type SentenceSplitter struct {
	maxChars  int // 每句最大字符数（默认160）
	softRatio float64
	terminals string
	softMarks string
}

// NewSentenceSplitter 创建分句器实例
func NewSentenceSplitter(maxChars int) *SentenceSplitter {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &SentenceSplitter{
		maxChars:  maxChars,
		softRatio: DefaultSoftRatio,
		terminals: TerminalMarks,
		softMarks: SoftBreakMarks,
	}
}

// MaxChars 返回单句字符上限
func (ss *SentenceSplitter) MaxChars() int {
	return ss.maxChars
}

// Normalize 分句并对过长句子再切分
//
// Returns:
//   - []string: 按出现顺序排列的非空句子
//   - error: 结果为空时返回 ErrEmptyInput
func (ss *SentenceSplitter) Normalize(text string) ([]string, error) {
	var out []string
	for _, s := range ss.SplitSentences(text) {
		out = append(out, ss.SplitLong(s)...)
	}
	if len(out) == 0 {
		return nil, ErrEmptyInput
	}
	return out, nil
}

// SplitSentences 在句末标点之后切分（标点后的空白一并丢弃），去掉空句
func (ss *SentenceSplitter) SplitSentences(text string) []string {
	var sentences []string
	var buf strings.Builder

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			sentences = append(sentences, s)
		}
		buf.Reset()
	}

	for _, ch := range text {
		buf.WriteRune(ch)
		if strings.ContainsRune(ss.terminals, ch) {
			flush()
		}
	}
	flush()

	return sentences
}

// SplitLong 按字符扫描切分过长的句子
// 缓冲区以软断点结尾且达到上限的 60% 时切出；达到上限时强制切出
func (ss *SentenceSplitter) SplitLong(sentence string) []string {
	if utf8.RuneCountInString(sentence) <= ss.maxChars {
		return []string{sentence}
	}

	minSoft := int(float64(ss.maxChars) * ss.softRatio)

	var chunks []string
	var buf []rune
	emit := func() {
		if s := strings.TrimSpace(string(buf)); s != "" {
			chunks = append(chunks, s)
		}
		buf = buf[:0]
	}

	for _, ch := range sentence {
		buf = append(buf, ch)
		if strings.ContainsRune(ss.softMarks, ch) && len(buf) >= minSoft {
			emit()
		} else if len(buf) >= ss.maxChars {
			emit()
		}
	}
	emit()

	return chunks
}

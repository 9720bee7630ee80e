package jatext

import (
	"strings"
	"unicode"
)

// WrapMode 字幕折行方式
type WrapMode string

const (
	// WrapSoft 优先在限宽内最后一个软断点处断行
	WrapSoft WrapMode = "soft"
	// WrapFixed 固定宽度切分
	WrapFixed WrapMode = "fixed"
)

// WrapBreakMarks 折行时优先断开的字符
const WrapBreakMarks = "、。"

// Wrap 按模式折行，width<=0 时不折行
func Wrap(text string, width int, mode WrapMode) []string {
	if mode == WrapFixed {
		return WrapFixedWidth(text, width)
	}
	return WrapSoftBreak(text, width)
}

// WrapSoftBreak 贪心折行，每行不超过 width 个字符
// 限宽内存在 、。 时在最后一个之后断开，否则在 width 处硬切。行首尾空白去掉，空行丢弃
func WrapSoftBreak(text string, width int) []string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if width <= 0 || len(runes) <= width {
		return []string{text}
	}

	var lines []string
	push := func(rs []rune) {
		if l := strings.TrimSpace(string(rs)); l != "" {
			lines = append(lines, l)
		}
	}
	for len(runes) > width {
		cut := width
		for i := width - 1; i >= 0; i-- {
			if isWrapBreak(runes[i]) {
				cut = i + 1
				break
			}
		}
		push(runes[:cut])
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	push(runes)
	return lines
}

// WrapFixedWidth 每 width 个字符一行
func WrapFixedWidth(text string, width int) []string {
	runes := []rune(text)
	if width <= 0 || len(runes) <= width {
		return []string{text}
	}

	lines := make([]string, 0, len(runes)/width+1)
	for start := 0; start < len(runes); start += width {
		end := min(start+width, len(runes))
		lines = append(lines, string(runes[start:end]))
	}
	return lines
}

func isWrapBreak(r rune) bool {
	return strings.ContainsRune(WrapBreakMarks, r)
}

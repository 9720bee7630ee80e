package jatext

import (
	"unicode/utf8"
)

// DefaultPause 句末字符不在表中时的停顿秒数
const DefaultPause = 0.10

// PauseTable 按句末字符查停顿时长
// 同一个值既用于生成静音片段，也用于推进字幕时间轴
type PauseTable struct {
	table    map[rune]float64
	fallback float64
}

// StandardPauses 标准版停顿表
func StandardPauses() map[string]float64 {
	return map[string]float64{
		"。": 0.25,
		"！": 0.20,
		"？": 0.20,
		"…": 0.18,
		"、": 0.12,
	}
}

// NewPauseTable 创建停顿表，key 取第一个字符，负数按 0 处理
func NewPauseTable(pauses map[string]float64, fallback float64) *PauseTable {
	table := make(map[rune]float64, len(pauses))
	for k, v := range pauses {
		r, _ := utf8.DecodeRuneInString(k)
		if r == utf8.RuneError {
			continue
		}
		table[r] = max(v, 0)
	}
	return &PauseTable{table: table, fallback: max(fallback, 0)}
}

// Pause 返回句子结束后的停顿秒数，空句返回默认值
func (pt *PauseTable) Pause(sentence string) float64 {
	last, _ := utf8.DecodeLastRuneInString(sentence)
	if last == utf8.RuneError {
		return pt.fallback
	}
	if p, ok := pt.table[last]; ok {
		return p
	}
	return pt.fallback
}

// Pauses 批量计算
func (pt *PauseTable) Pauses(sentences []string) []float64 {
	out := make([]float64, len(sentences))
	for i, s := range sentences {
		out[i] = pt.Pause(s)
	}
	return out
}

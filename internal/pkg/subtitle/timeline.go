// Package subtitle 字幕时间轴与 SRT 输出
package subtitle

import (
	"fmt"
	"strings"
)

// Segment 一句话在时间轴上的位置
// End = Start + Duration，下一句 Start = End + Pause
type Segment struct {
	Sentence string
	Duration float64 // 音频时长（秒）
	Pause    float64 // 句后停顿（秒）
	Start    float64
	End      float64
}

// Cue 一条字幕
type Cue struct {
	Index int // 从 1 开始连续编号
	Start float64
	End   float64
	Lines []string
}

// Text 以换行拼接的字幕文本
func (c Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// WrapFunc 字幕折行函数
type WrapFunc func(sentence string) []string

// Timeline 构建结果
type Timeline struct {
	Segments []Segment
	Cues     []Cue
	Total    float64 // 累计时长（包含最后一句的停顿）
}

// Build 沿时间轴累加时长与停顿，生成字幕
//
// Parameters:
//   - sentences: 按播放顺序排列的句子
//   - durations: 每句音频时长，与 sentences 一一对应
//   - pauses: 每句之后的停顿，与 sentences 一一对应
//   - wrap: 折行函数，nil 时每句一行
func Build(sentences []string, durations, pauses []float64, wrap WrapFunc) (*Timeline, error) {
	if len(durations) != len(sentences) || len(pauses) != len(sentences) {
		return nil, fmt.Errorf("timeline length mismatch: sentences=%d durations=%d pauses=%d",
			len(sentences), len(durations), len(pauses))
	}

	tl := &Timeline{
		Segments: make([]Segment, 0, len(sentences)),
		Cues:     make([]Cue, 0, len(sentences)),
	}

	clock := 0.0
	for i, s := range sentences {
		d := max(durations[i], 0)
		p := max(pauses[i], 0)

		seg := Segment{
			Sentence: s,
			Duration: d,
			Pause:    p,
			Start:    clock,
			End:      clock + d,
		}
		tl.Segments = append(tl.Segments, seg)

		lines := []string{s}
		if wrap != nil {
			lines = wrap(s)
		}
		tl.Cues = append(tl.Cues, Cue{
			Index: i + 1,
			Start: seg.Start,
			End:   seg.End,
			Lines: lines,
		})

		clock += d + p
	}
	tl.Total = clock

	return tl, nil
}

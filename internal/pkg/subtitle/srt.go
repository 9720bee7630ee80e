package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// FormatTimestamp 秒数转 HH:MM:SS,mmm
// 先四舍五入到毫秒再拆分，小时数不按 24 取模
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))

	h := totalMs / 3_600_000
	totalMs %= 3_600_000
	m := totalMs / 60_000
	totalMs %= 60_000
	s := totalMs / 1000
	ms := totalMs % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Encode 按 SRT 格式写出字幕
func Encode(w io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(w)
	for _, c := range cues {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			c.Index, FormatTimestamp(c.Start), FormatTimestamp(c.End),
			strings.Join(c.Lines, "\n")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile 写出 SRT 文件（UTF-8）
func WriteFile(path string, cues []Cue) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create srt: %w", err)
	}
	if err := Encode(f, cues); err != nil {
		f.Close()
		return fmt.Errorf("write srt: %w", err)
	}
	return f.Close()
}

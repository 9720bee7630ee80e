package metadata

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// NewConsoleConfirm 控制台 [y/N] 确认，直接回车视为否
func NewConsoleConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(c Candidate) bool {
		fmt.Fprintf(out, "采用这个文本吗？ %s  相似度=%.3f [y/N]: ", filepath.Base(c.Path), c.Score)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

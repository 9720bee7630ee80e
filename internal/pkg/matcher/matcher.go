// Package matcher 文件名主干归一化与相似度计算
package matcher

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	// 开头的 8~14 位时间戳及其后的分隔符
	timestampPrefix = regexp.MustCompile(`^\d{8,14}[-_ ]*`)
	trailingDots    = regexp.MustCompile(`\.+$`)
	// 派生文件的后缀，可带一个分隔符
	knownSuffix = regexp.MustCompile(`(?i)([._-])?(` + strings.Join(KnownSuffixes, "|") + `)$`)
)

// KnownSuffixes 归一化时剥离的后缀词
var KnownSuffixes = []string{"bgm", "wide", "short", "tts", "sub", "final"}

// Normalize 归一化文件名主干：去时间戳前缀、尾部的点和已知后缀
// 重复执行直到不再变化，因此 Normalize(Normalize(s)) == Normalize(s)
func Normalize(stem string) string {
	cur := stem
	for {
		next := normalizeOnce(cur)
		if next == cur {
			return cur
		}
		cur = next
	}
}

func normalizeOnce(stem string) string {
	s := strings.TrimSpace(stem)
	s = timestampPrefix.ReplaceAllString(s, "")
	s = trailingDots.ReplaceAllString(s, "")

	for {
		next := knownSuffix.ReplaceAllString(s, "")
		next = trailingDots.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}

	return strings.TrimSpace(s)
}

// Ratio 最长匹配块相似度 2*M/T，范围 [0,1]
// 参数按字典序排列后再比较，保证 Ratio(a,b) == Ratio(b,a)
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a > b {
		a, b = b, a
	}
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return m.Ratio()
}

// Score 两个原始主干归一化后的相似度
func Score(stemA, stemB string) float64 {
	return Ratio(Normalize(stemA), Normalize(stemB))
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Package textenc 文本文件编码探测与多候选解码
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// ErrUndecodable 所有候选编码都无法无损解码
var ErrUndecodable = errors.New("text is not decodable with any candidate encoding")

// DefaultEncoding 探测失败时使用的编码
const DefaultEncoding = "utf-8"

// Candidate 候选解码器
type Candidate struct {
	Name     string
	Encoding encoding.Encoding
}

// DefaultCandidates 探测结果之后依次尝试的编码
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Name: "utf-8-sig", Encoding: unicode.UTF8BOM},
		{Name: "utf-8", Encoding: unicode.UTF8},
		{Name: "shift_jis", Encoding: japanese.ShiftJIS},
		{Name: "euc-jp", Encoding: japanese.EUCJP},
	}
}

// Result 解码结果
type Result struct {
	Text     string // 解码后的文本
	Encoding string // 实际采用的编码名
}

// Decoder 文本解码器
type Decoder struct {
	detector   *chardet.Detector
	candidates []Candidate
}

// NewDecoder 创建解码器，candidates 为空时使用 DefaultCandidates
func NewDecoder(candidates ...Candidate) *Decoder {
	if len(candidates) == 0 {
		candidates = DefaultCandidates()
	}
	return &Decoder{
		detector:   chardet.NewTextDetector(),
		candidates: candidates,
	}
}

// Detect 探测字节流编码，失败或为空时返回 DefaultEncoding
func (d *Decoder) Detect(raw []byte) string {
	if len(raw) == 0 {
		return DefaultEncoding
	}
	res, err := d.detector.DetectBest(raw)
	if err != nil || res == nil || res.Charset == "" {
		return DefaultEncoding
	}
	return strings.ToLower(res.Charset)
}

// Decode 严格解码：先试探测到的编码，再按候选顺序尝试，第一个无错误的胜出
func (d *Decoder) Decode(raw []byte) (*Result, error) {
	chain := make([]Candidate, 0, len(d.candidates)+1)
	if name := d.Detect(raw); name != "" {
		if enc, err := lookup(name); err == nil {
			chain = append(chain, Candidate{Name: name, Encoding: enc})
		}
	}
	chain = append(chain, d.candidates...)

	return tryChain(chain, raw)
}

// tryChain 按顺序尝试候选编码，同名候选只尝试一次
func tryChain(chain []Candidate, raw []byte) (*Result, error) {
	tried := map[string]bool{}
	for _, c := range chain {
		key := strings.ToLower(c.Name)
		if tried[key] {
			continue
		}
		tried[key] = true

		text, err := decodeStrict(c.Encoding, raw)
		if err != nil {
			continue
		}
		return &Result{Text: text, Encoding: c.Name}, nil
	}

	return nil, ErrUndecodable
}

// DecodeLenient 宽松解码：使用探测到的编码，非法字节替换为 U+FFFD
func (d *Decoder) DecodeLenient(raw []byte) *Result {
	// 合法 UTF-8 不再交给探测器，短文本容易误判
	if utf8.Valid(raw) {
		out, _ := unicode.UTF8BOM.NewDecoder().Bytes(raw)
		return &Result{Text: string(out), Encoding: DefaultEncoding}
	}

	name := d.Detect(raw)
	enc, err := lookup(name)
	if err != nil {
		name, enc = DefaultEncoding, unicode.UTF8BOM
	}

	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		// 解码器本身报错时退回 UTF-8 替换模式
		return &Result{Text: strings.ToValidUTF8(string(raw), "�"), Encoding: DefaultEncoding}
	}
	return &Result{Text: string(out), Encoding: name}
}

// ReadFile 读取文本文件（宽松模式），用于流水线输入
func (d *Decoder) ReadFile(path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return d.DecodeLenient(raw), nil
}

func lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "utf-8-sig", "utf-8", "utf8", "ascii", "us-ascii":
		// UTF8BOM 的解码器会去掉开头的 BOM，无 BOM 时与 UTF-8 一致
		return unicode.UTF8BOM, nil
	case "cp932", "windows-31j", "shift_jis", "sjis":
		return japanese.ShiftJIS, nil
	case "euc-jp", "euc_jp":
		return japanese.EUCJP, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}

// decodeStrict x/text 的解码器遇到非法字节会写入 U+FFFD，这里把它视为失败
func decodeStrict(enc encoding.Encoding, raw []byte) (string, error) {
	if enc == unicode.UTF8 || enc == unicode.UTF8BOM {
		if !utf8.Valid(raw) {
			return "", ErrUndecodable
		}
		out, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}

	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", ErrUndecodable
	}
	return string(out), nil
}

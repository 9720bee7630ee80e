// Package metadata 为视频查找配套的说明文本并解析标题与简介
package metadata

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"txt2tube/internal/pkg/matcher"
)

const (
	// DefaultThreshold 默认相似度阈值
	DefaultThreshold = 0.90
	// DefaultLooseThreshold 放宽时的阈值上限
	DefaultLooseThreshold = 0.80
	// DefaultLimit 递归搜索保留的候选数
	DefaultLimit = 10
	// DefaultDebugLimit 同目录未命中时输出的候选数
	DefaultDebugLimit = 5
)

// Strategy 命中方式
type Strategy string

const (
	StrategyNone      Strategy = "none"
	StrategySimilar   Strategy = "same_dir_similar"
	StrategyFallback  Strategy = "same_dir_fallback"
	StrategyRecursive Strategy = "recursive"
)

// FallbackSuffixes 同目录回退候选中追加到归一化主干后的后缀
var FallbackSuffixes = []string{"_bgm", "._bgm", ".bgm", "_wide", "._wide", "_short", "._short", "_tts", "._tts"}

// Candidate 候选文本文件
type Candidate struct {
	Path       string
	Stem       string
	Normalized string
	Score      float64
}

// Resolution 查找结果，Path 为空表示未找到
type Resolution struct {
	Path       string
	Strategy   Strategy
	Score      float64
	NearMisses []Candidate // 同目录未命中时的高分候选
	Candidates []Candidate // 递归搜索的候选（按得分排序）
}

// Found 是否找到
func (r *Resolution) Found() bool {
	return r != nil && r.Path != ""
}

// ConfirmFunc 递归搜索候选的采用确认
type ConfirmFunc func(c Candidate) bool

// Options 查找参数
type Options struct {
	Threshold  float64
	SearchRoot string // 递归搜索根目录，空则跳过
	Recursive  bool
	Confirm    ConfirmFunc // nil 时自动采用得分最高的候选
	Limit      int
	DebugLimit int
}

// EffectiveThreshold 计算实际阈值，放宽时只会降低不会提高
func EffectiveThreshold(base float64, loosen bool, loose float64) float64 {
	if loosen {
		return min(base, loose)
	}
	return base
}

// Resolver 元数据文件查找器
type Resolver struct {
	opts Options
}

// NewResolver 创建查找器
func NewResolver(opts Options) *Resolver {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.DebugLimit <= 0 {
		opts.DebugLimit = DefaultDebugLimit
	}
	return &Resolver{opts: opts}
}

// Resolve 按顺序尝试：同目录相似搜索 -> 同目录回退候选 -> 递归搜索
func (r *Resolver) Resolve(videoPath string) (*Resolution, error) {
	absVideo, err := filepath.Abs(videoPath)
	if err != nil {
		return nil, fmt.Errorf("resolve video path: %w", err)
	}
	dir := filepath.Dir(absVideo)
	stem := stemOf(absVideo)
	norm := matcher.Normalize(stem)

	res := &Resolution{Strategy: StrategyNone}

	// 1. 同目录相似搜索
	best, scanned, err := r.scanDir(dir, norm)
	if err != nil {
		return nil, err
	}
	if best != nil {
		log.Info().
			Str("txt", filepath.Base(best.Path)).
			Float64("score", best.Score).
			Float64("threshold", r.opts.Threshold).
			Msg("同目录找到相似文本")
		res.Path, res.Strategy, res.Score = best.Path, StrategySimilar, best.Score
		return res, nil
	}

	res.NearMisses = topN(scanned, r.opts.DebugLimit)
	log.Info().
		Str("video_stem", stem).
		Str("normalized", norm).
		Float64("threshold", r.opts.Threshold).
		Msg("同目录未找到相似文本")
	for _, c := range res.NearMisses {
		log.Info().
			Str("txt", filepath.Base(c.Path)).
			Str("normalized", c.Normalized).
			Str("score", fmt.Sprintf("%.3f", c.Score)).
			Msg("候选")
	}

	// 2. 同目录回退候选
	for _, p := range FallbackCandidates(absVideo) {
		if isRegularFile(p) {
			log.Info().Str("txt", filepath.Base(p)).Msg("回退候选命中")
			res.Path, res.Strategy = p, StrategyFallback
			res.Score = matcher.Ratio(norm, matcher.Normalize(stemOf(p)))
			return res, nil
		}
	}

	// 3. 递归搜索
	if !r.opts.Recursive || r.opts.SearchRoot == "" {
		return res, nil
	}
	hits, err := r.searchRecursive(r.opts.SearchRoot, norm)
	if err != nil {
		return nil, err
	}
	res.Candidates = hits
	if len(hits) == 0 {
		log.Info().Str("root", r.opts.SearchRoot).Msg("递归搜索也未找到相似文本")
		return res, nil
	}

	for _, c := range hits {
		log.Info().
			Str("txt", c.Path).
			Str("normalized", c.Normalized).
			Str("score", fmt.Sprintf("%.3f", c.Score)).
			Msg("递归候选")
	}

	if r.opts.Confirm == nil {
		top := hits[0]
		log.Info().Str("txt", top.Path).Msg("采用得分最高的递归候选")
		res.Path, res.Strategy, res.Score = top.Path, StrategyRecursive, top.Score
		return res, nil
	}
	for _, c := range hits {
		if r.opts.Confirm(c) {
			log.Info().Str("txt", c.Path).Msg("确认采用递归候选")
			res.Path, res.Strategy, res.Score = c.Path, StrategyRecursive, c.Score
			return res, nil
		}
	}

	return res, nil
}

// scanDir 扫描同目录下的 .txt，返回达到阈值的最高分候选与全部候选
// os.ReadDir 按文件名排序，得分相同时保留先出现的
func (r *Resolver) scanDir(dir, videoNorm string) (*Candidate, []Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var (
		best    *Candidate
		scanned []Candidate
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || !isTextName(e.Name()) {
			continue
		}
		c := newCandidate(filepath.Join(dir, e.Name()), videoNorm)
		scanned = append(scanned, c)
		if c.Score >= r.opts.Threshold && (best == nil || c.Score > best.Score) {
			cc := c
			best = &cc
		}
	}
	return best, scanned, nil
}

// searchRecursive 遍历子树，保留达到阈值的候选
// 按得分降序、路径升序排列，取前 Limit 个
func (r *Resolver) searchRecursive(root, videoNorm string) ([]Candidate, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		log.Warn().Str("root", root).Msg("递归搜索根目录不存在，跳过")
		return nil, nil
	}

	var hits []Candidate
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// 无法读取的子目录跳过
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !isTextName(d.Name()) {
			return nil
		}
		c := newCandidate(path, videoNorm)
		if c.Score >= r.opts.Threshold {
			hits = append(hits, c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sortCandidates(hits)
	if len(hits) > r.opts.Limit {
		hits = hits[:r.opts.Limit]
	}
	return hits, nil
}

// FallbackCandidates 同目录回退候选，按尝试顺序排列并去重
func FallbackCandidates(videoPath string) []string {
	absVideo, err := filepath.Abs(videoPath)
	if err != nil {
		absVideo = videoPath
	}
	dir := filepath.Dir(absVideo)
	stem := stemOf(absVideo)
	norm := matcher.Normalize(stem)

	cands := []string{strings.TrimSuffix(absVideo, filepath.Ext(absVideo)) + ".txt"}
	cands = append(cands, filepath.Join(dir, norm+".txt"))
	for _, s := range FallbackSuffixes {
		cands = append(cands, filepath.Join(dir, norm+s+".txt"))
	}
	cands = append(cands,
		filepath.Join(dir, strings.TrimRight(stem, ".")+".txt"),
		filepath.Join(dir, stem+".txt"),
	)

	seen := make(map[string]bool, len(cands))
	out := make([]string, 0, len(cands))
	for _, p := range cands {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func newCandidate(path, videoNorm string) Candidate {
	stem := stemOf(path)
	norm := matcher.Normalize(stem)
	return Candidate{
		Path:       path,
		Stem:       stem,
		Normalized: norm,
		Score:      matcher.Ratio(videoNorm, norm),
	}
}

func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].Path < cs[j].Path
	})
}

func topN(cs []Candidate, n int) []Candidate {
	out := append([]Candidate(nil), cs...)
	sortCandidates(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isTextName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".txt")
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

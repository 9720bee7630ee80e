package metadata

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/text/encoding/japanese"
)

func touch(path, content string) {
	So(os.MkdirAll(filepath.Dir(path), 0o755), ShouldBeNil)
	So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)
}

func staticConfirm(answers ...bool) ConfirmFunc {
	i := 0
	return func(Candidate) bool {
		if i >= len(answers) {
			return false
		}
		ok := answers[i]
		i++
		return ok
	}
}

func TestResolver_SameDirectory(t *testing.T) {
	Convey("同目录相似搜索", t, func() {
		dir := t.TempDir()
		video := filepath.Join(dir, "20260106114609-report_bgm.mp4")
		touch(video, "")
		touch(filepath.Join(dir, "report.txt"), "タイトル\n本文")
		touch(filepath.Join(dir, "unrelated.txt"), "other")

		r := NewResolver(Options{Threshold: DefaultThreshold})
		res, err := r.Resolve(video)
		So(err, ShouldBeNil)
		So(res.Found(), ShouldBeTrue)
		So(res.Path, ShouldEqual, filepath.Join(dir, "report.txt"))
		So(res.Strategy, ShouldEqual, StrategySimilar)
		So(res.Score, ShouldEqual, 1.0)

		Convey("得分相同时取文件名靠前的", func() {
			touch(filepath.Join(dir, "report_wide.TXT"), "")
			touch(filepath.Join(dir, "Report_bgm.txt"), "")
			res, err := r.Resolve(video)
			So(err, ShouldBeNil)
			// "Report" 与 "report" 不同，大写开头的文件名排在前面但得分较低
			So(res.Path, ShouldEqual, filepath.Join(dir, "report.txt"))
		})
	})

	Convey("同目录未命中时返回高分候选", t, func() {
		dir := t.TempDir()
		video := filepath.Join(dir, "女優の生涯.mp4")
		touch(video, "")
		for _, n := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt", "女優の生.txt", "memo.md"} {
			touch(filepath.Join(dir, n), "")
		}

		res, err := NewResolver(Options{Threshold: 0.95}).Resolve(video)
		So(err, ShouldBeNil)
		So(res.Found(), ShouldBeFalse)
		So(res.Strategy, ShouldEqual, StrategyNone)
		So(len(res.NearMisses), ShouldEqual, DefaultDebugLimit)
		So(filepath.Base(res.NearMisses[0].Path), ShouldEqual, "女優の生.txt")
		for _, c := range res.NearMisses {
			So(strings.HasSuffix(c.Path, ".txt"), ShouldBeTrue)
		}
	})
}

func TestResolver_Fallback(t *testing.T) {
	Convey("回退候选", t, func() {
		dir := t.TempDir()
		video := filepath.Join(dir, "report..mp4")

		cands := FallbackCandidates(video)
		So(cands[0], ShouldEqual, filepath.Join(dir, "report..txt"))
		So(cands[1], ShouldEqual, filepath.Join(dir, "report.txt"))
		So(cands[2], ShouldEqual, filepath.Join(dir, "report_bgm.txt"))
		So(len(cands), ShouldEqual, 1+1+len(FallbackSuffixes))

		Convey("同目录扫描跳过的符号链接由回退候选命中", func() {
			target := filepath.Join(t.TempDir(), "elsewhere.txt")
			touch(target, "タイトル")
			touch(video, "")
			if err := os.Symlink(target, filepath.Join(dir, "report_bgm.txt")); err != nil {
				SkipSo(err, ShouldBeNil)
				return
			}

			res, err := NewResolver(Options{Threshold: DefaultThreshold}).Resolve(video)
			So(err, ShouldBeNil)
			So(res.Strategy, ShouldEqual, StrategyFallback)
			So(res.Path, ShouldEqual, filepath.Join(dir, "report_bgm.txt"))
		})
	})
}

func TestResolver_Recursive(t *testing.T) {
	Convey("递归搜索", t, func() {
		videoDir := t.TempDir()
		video := filepath.Join(videoDir, "20260106114609-report.mp4")
		touch(video, "")

		root := t.TempDir()
		touch(filepath.Join(root, "b", "report_wide.txt"), "")
		touch(filepath.Join(root, "a", "deep", "report.txt"), "")
		touch(filepath.Join(root, "c", "unrelated.txt"), "")

		Convey("未开启时不搜索", func() {
			res, err := NewResolver(Options{Threshold: 0.9, SearchRoot: root}).Resolve(video)
			So(err, ShouldBeNil)
			So(res.Found(), ShouldBeFalse)
		})

		Convey("自动采用得分最高且路径靠前的候选", func() {
			res, err := NewResolver(Options{Threshold: 0.9, SearchRoot: root, Recursive: true}).Resolve(video)
			So(err, ShouldBeNil)
			So(res.Strategy, ShouldEqual, StrategyRecursive)
			So(res.Path, ShouldEqual, filepath.Join(root, "a", "deep", "report.txt"))
			So(len(res.Candidates), ShouldEqual, 2)
		})

		Convey("按确认结果采用", func() {
			opts := Options{Threshold: 0.9, SearchRoot: root, Recursive: true, Confirm: staticConfirm(false, true)}
			res, err := NewResolver(opts).Resolve(video)
			So(err, ShouldBeNil)
			So(res.Path, ShouldEqual, filepath.Join(root, "b", "report_wide.txt"))
		})

		Convey("全部拒绝时未找到", func() {
			opts := Options{Threshold: 0.9, SearchRoot: root, Recursive: true, Confirm: staticConfirm()}
			res, err := NewResolver(opts).Resolve(video)
			So(err, ShouldBeNil)
			So(res.Found(), ShouldBeFalse)
			So(len(res.Candidates), ShouldEqual, 2)
		})

		Convey("候选数受 Limit 限制", func() {
			opts := Options{Threshold: 0.9, SearchRoot: root, Recursive: true, Limit: 1}
			res, err := NewResolver(opts).Resolve(video)
			So(err, ShouldBeNil)
			So(len(res.Candidates), ShouldEqual, 1)
		})

		Convey("根目录不存在时跳过", func() {
			opts := Options{Threshold: 0.9, SearchRoot: filepath.Join(root, "missing"), Recursive: true}
			res, err := NewResolver(opts).Resolve(video)
			So(err, ShouldBeNil)
			So(res.Found(), ShouldBeFalse)
		})
	})
}

func TestEffectiveThreshold(t *testing.T) {
	Convey("放宽阈值只降不升", t, func() {
		So(EffectiveThreshold(0.90, false, 0.80), ShouldEqual, 0.90)
		So(EffectiveThreshold(0.90, true, 0.80), ShouldEqual, 0.80)
		So(EffectiveThreshold(0.70, true, 0.80), ShouldEqual, 0.70)
	})
}

func TestParse(t *testing.T) {
	Convey("Parse 标题与简介", t, func() {
		Convey("第 1 行为空时取第 2 行", func() {
			md := Parse([]string{"", "Title【X】", "body line 1", "body line 2"}, "fallback")
			So(md.Title, ShouldEqual, "TitleX")
			So(md.Description, ShouldEqual, "body line 1\nbody line 2")
		})

		Convey("第 1 行为标题", func() {
			md := Parse([]string{" 【女優】昭和の名女優 ", "", "本文です。", ""}, "fallback")
			So(md.Title, ShouldEqual, "女優昭和の名女優")
			So(md.Description, ShouldEqual, "本文です。")
		})

		Convey("前两行都为空时使用回退标题", func() {
			md := Parse([]string{" ", "\t", "本文"}, "fallback")
			So(md.Title, ShouldEqual, "fallback")
			So(md.Description, ShouldEqual, "")

			md = Parse(nil, "fallback")
			So(md.Title, ShouldEqual, "fallback")
		})
	})

	Convey("SplitLines", t, func() {
		So(SplitLines("a\r\nb\rc\n"), ShouldResemble, []string{"a", "b", "c"})
		So(SplitLines("a\n\nb"), ShouldResemble, []string{"a", "", "b"})
		So(SplitLines(""), ShouldBeNil)
	})
}

func TestExtractor_Extract(t *testing.T) {
	Convey("Extract 读取说明文本", t, func() {
		dir := t.TempDir()
		ex := NewExtractor(nil)

		Convey("Shift_JIS 文件", func() {
			body := "彼女の歌声は多くの人々の心に残っています。\r\n今回はその足跡をたどり、代表的な作品と当時の様子を紹介します。"
			content := "【歌手】昭和歌謡の歌姫\r\n\r\n" + body + "\r\n"
			raw, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(content))
			So(err, ShouldBeNil)
			path := filepath.Join(dir, "sjis.txt")
			So(os.WriteFile(path, raw, 0o644), ShouldBeNil)

			md := ex.Extract(path, "fallback")
			So(md.Title, ShouldEqual, "歌手昭和歌謡の歌姫")
			So(md.Description, ShouldEqual, strings.ReplaceAll(body, "\r\n", "\n"))
			So(md.Encoding, ShouldNotBeEmpty)
		})

		Convey("文件不存在时使用回退标题", func() {
			md := ex.Extract(filepath.Join(dir, "missing.txt"), "video-stem")
			So(md.Title, ShouldEqual, "video-stem")
			So(md.Description, ShouldEqual, "")
			So(md.Encoding, ShouldEqual, "")
		})
	})
}

func TestNewConsoleConfirm(t *testing.T) {
	Convey("控制台确认", t, func() {
		var out bytes.Buffer
		confirm := NewConsoleConfirm(strings.NewReader("y\n\nNO\nyes"), &out)
		c := Candidate{Path: "/tmp/report.txt", Score: 0.95}

		So(confirm(c), ShouldBeTrue)
		So(confirm(c), ShouldBeFalse)
		So(confirm(c), ShouldBeFalse)
		So(confirm(c), ShouldBeTrue)
		So(confirm(c), ShouldBeFalse)
		So(out.String(), ShouldContainSubstring, "report.txt")
	})
}

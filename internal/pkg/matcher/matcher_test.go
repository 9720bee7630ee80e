package matcher

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Normalize 归一化文件名主干", t, func() {
		cases := map[string]string{
			"20260106114609-report_bgm": "report",
			"20260106_report":           "report",
			"report":                    "report",
			"report...":                 "report",
			"report_bgm.wide":           "report",
			"report.BGM_short.":         "report",
			"  report_tts  ":            "report",
			"1234567-report":            "1234567-report",
			"subway":                    "subway",
			"女優の生涯_final":               "女優の生涯",
		}
		for in, want := range cases {
			So(Normalize(in), ShouldEqual, want)
		}

		Convey("幂等", func() {
			inputs := []string{
				"20260106114609-report_bgm",
				"20260106114609 20260106114609_x",
				"a_bgm. _short",
				"..._wide",
				"20260106114609",
				"final",
				"report_sub.tts ",
				"",
			}
			for _, in := range inputs {
				once := Normalize(in)
				So(Normalize(once), ShouldEqual, once)
			}
		})
	})
}

func TestRatio(t *testing.T) {
	Convey("Ratio 相似度", t, func() {
		Convey("自身相似度为 1", func() {
			for _, s := range []string{"report", "女優", "a"} {
				So(Ratio(s, s), ShouldEqual, 1.0)
			}
		})

		Convey("对称", func() {
			pairs := [][2]string{
				{"report", "reprt"},
				{"abcd", "bcda"},
				{"昭和の女優", "平成の女優たち"},
				{"xyz", "report"},
			}
			for _, p := range pairs {
				So(Ratio(p[0], p[1]), ShouldEqual, Ratio(p[1], p[0]))
			}
		})

		Convey("范围在 [0,1]", func() {
			r := Ratio("report", "unrelated")
			So(r, ShouldBeGreaterThanOrEqualTo, 0)
			So(r, ShouldBeLessThan, 0.9)
			So(Ratio("abc", "xyz"), ShouldEqual, 0)
		})

		Convey("Score 先归一化再比较", func() {
			So(Score("20260106114609-report_bgm", "report"), ShouldEqual, 1.0)
		})
	})
}

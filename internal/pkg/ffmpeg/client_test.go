package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// fakeBinary 写一个记录参数的假 ffmpeg，exitCode 非 0 时写 stderr 后退出
func fakeBinary(dir string, exitCode int) (bin, argsFile string) {
	bin = filepath.Join(dir, "fake-ffmpeg")
	argsFile = filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\n" +
		"for a in \"$@\"; do echo \"$a\" >> '" + argsFile + "'; done\n"
	if exitCode != 0 {
		script += "echo 'Error opening input' >&2\nexit " + string(rune('0'+exitCode)) + "\n"
	} else {
		// 最后一个参数是输出文件
		script += "for last in \"$@\"; do :; done\necho out > \"$last\"\n"
	}
	So(os.WriteFile(bin, []byte(script), 0o755), ShouldBeNil)
	return bin, argsFile
}

func readArgs(path string) []string {
	data, err := os.ReadFile(path)
	So(err, ShouldBeNil)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestEscapeFilterPath(t *testing.T) {
	Convey("EscapeFilterPath", t, func() {
		So(EscapeFilterPath("/tmp/run/sub.srt"), ShouldEqual, "/tmp/run/sub.srt")
		So(EscapeFilterPath(`D:\work\sub.srt`), ShouldContainSubstring, `D\:/work/sub.srt`)
	})
}

func TestBuildComposeArgs(t *testing.T) {
	Convey("BuildComposeArgs", t, func() {
		style := SubtitleStyle{FontName: "MS Gothic", FontSize: 18, Alignment: 2, MarginV: 80}

		Convey("字幕滤镜", func() {
			vf := BuildSubtitleFilter("/tmp/x/sub.srt", style)
			So(vf, ShouldEqual,
				`subtitles=filename='/tmp/x/sub.srt':charenc=UTF-8:force_style='FontName=MS\ Gothic,FontSize=18,Alignment=2,MarginV=80'`)
		})

		Convey("纯色背景", func() {
			args, err := BuildComposeArgs(ComposeOptions{
				AudioPath: "a.mp3", SubtitlePath: "/tmp/sub.srt", OutputPath: "o.mp4",
				Width: 1920, Height: 1080, FPS: 30, Style: style,
			})
			So(err, ShouldBeNil)
			joined := strings.Join(args, " ")
			So(joined, ShouldStartWith, "-y -f lavfi -i color=c=black:s=1920x1080:r=30 -i a.mp3 -vf ")
			So(joined, ShouldEndWith, "-c:v libx264 -pix_fmt yuv420p -c:a aac -b:a 192k -shortest o.mp4")
			So(args, ShouldNotContain, "-loop")
			So(args, ShouldNotContain, "-t")
		})

		Convey("静态图背景并限制时长", func() {
			args, err := BuildComposeArgs(ComposeOptions{
				AudioPath: "a.mp3", SubtitlePath: "/tmp/sub.srt", OutputPath: "o.mp4",
				BackgroundImage: "black_vertical.jpg", Duration: 12.3456,
				Style: SubtitleStyle{FontName: "Meiryo", FontSize: 16, Alignment: 2, MarginV: 100},
			})
			So(err, ShouldBeNil)
			joined := strings.Join(args, " ")
			So(joined, ShouldStartWith, "-y -loop 1 -i black_vertical.jpg -i a.mp3")
			So(joined, ShouldContainSubstring, "-c:v libx264 -tune stillimage -pix_fmt yuv420p")
			So(joined, ShouldEndWith, "-shortest -t 12.346 o.mp4")
		})

		Convey("缺少路径时报错", func() {
			_, err := BuildComposeArgs(ComposeOptions{AudioPath: "a.mp3"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseProbeOutput(t *testing.T) {
	Convey("ParseProbeOutput", t, func() {
		info, err := ParseProbeOutput([]byte(`{"format": {"duration": "12.480000"}}`))
		So(err, ShouldBeNil)
		So(info.Duration, ShouldEqual, 12.48)

		_, err = ParseProbeOutput([]byte(`{"format": {}}`))
		So(err, ShouldNotBeNil)

		_, err = ParseProbeOutput([]byte(`not json`))
		So(err, ShouldNotBeNil)
	})
}

func TestClient_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake binary")
	}

	Convey("调用外部进程", t, func() {
		ctx := context.Background()
		dir := t.TempDir()

		Convey("静音片段最短 0.01 秒", func() {
			bin, argsFile := fakeBinary(dir, 0)
			c := NewClient(Config{FFmpegPath: bin})
			out := filepath.Join(dir, "sil.mp3")
			So(c.MakeSilence(ctx, 0.001, out), ShouldBeNil)
			args := readArgs(argsFile)
			So(strings.Join(args, " "), ShouldEqual,
				"-y -f lavfi -i anullsrc=r=24000:cl=mono -t 0.010 -c:a libmp3lame -q:a 4 "+out)
		})

		Convey("合并音频写出清单", func() {
			bin, argsFile := fakeBinary(dir, 0)
			c := NewClient(Config{FFmpegPath: bin})
			manifest := filepath.Join(dir, "list.txt")
			inputs := []string{filepath.Join(dir, "a.mp3"), filepath.Join(dir, "b.mp3")}
			So(c.ConcatAudio(ctx, inputs, manifest, filepath.Join(dir, "out.mp3")), ShouldBeNil)

			data, err := os.ReadFile(manifest)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "file '"+inputs[0]+"'\nfile '"+inputs[1]+"'\n")
			So(readArgs(argsFile)[:5], ShouldResemble, []string{"-y", "-f", "concat", "-safe", "0"})

			So(c.ConcatAudio(ctx, nil, manifest, "x.mp3"), ShouldNotBeNil)
		})

		Convey("非零退出返回 ProcessError 并删除不完整输出", func() {
			bin, _ := fakeBinary(dir, 1)
			c := NewClient(Config{FFmpegPath: bin})
			out := filepath.Join(dir, "partial.mp4")
			So(os.WriteFile(out, []byte("partial"), 0o644), ShouldBeNil)

			err := c.ComposeVideo(ctx, ComposeOptions{
				AudioPath: "a.mp3", SubtitlePath: "sub.srt", OutputPath: out,
				Width: 1920, Height: 1080,
			})
			So(err, ShouldNotBeNil)

			var perr *ProcessError
			So(errors.As(err, &perr), ShouldBeTrue)
			So(perr.ExitCode, ShouldEqual, 1)
			So(perr.Stderr, ShouldContainSubstring, "Error opening input")
			So(err.Error(), ShouldContainSubstring, "Error opening input")

			_, statErr := os.Stat(out)
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})

		Convey("纯色图已存在时跳过", func() {
			img := filepath.Join(dir, "black.jpg")
			So(os.WriteFile(img, []byte("jpg"), 0o644), ShouldBeNil)
			c := NewClient(Config{FFmpegPath: filepath.Join(dir, "missing-binary")})
			So(c.MakeColorImage(ctx, "black", 720, 1280, img), ShouldBeNil)
		})
	})
}

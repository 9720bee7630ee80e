package tts

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// 构造 MPEG1 Layer III、128kbps、44.1kHz、单声道的空帧，每帧 417 字节、1152 个采样
func silentFrames(n int) []byte {
	frame := make([]byte, 417)
	frame[0], frame[1], frame[2], frame[3] = 0xFF, 0xFB, 0x90, 0xC0
	return bytes.Repeat(frame, n)
}

func TestMP3Duration(t *testing.T) {
	Convey("MP3Duration 逐帧累加时长", t, func() {
		d, err := MP3Duration(silentFrames(100))
		So(err, ShouldBeNil)
		So(d, ShouldAlmostEqual, 100*1152.0/44100.0, 0.01)

		Convey("没有帧时报错", func() {
			_, err := MP3Duration(nil)
			So(err, ShouldEqual, ErrNoFrames)
		})

		Convey("从文件读取", func() {
			path := filepath.Join(t.TempDir(), "a.mp3")
			So(os.WriteFile(path, silentFrames(10), 0o644), ShouldBeNil)
			d, err := MP3FileDuration(path)
			So(err, ShouldBeNil)
			So(d, ShouldAlmostEqual, 10*1152.0/44100.0, 0.01)

			_, err = MP3FileDuration(filepath.Join(t.TempDir(), "missing.mp3"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVoiceSelector(t *testing.T) {
	Convey("声音选择", t, func() {
		Convey("轮询", func() {
			s := NewRoundRobinVoiceSelector([]string{"a", "b", "c"})
			So(s.Choose(0, ""), ShouldEqual, "a")
			So(s.Choose(1, ""), ShouldEqual, "b")
			So(s.Choose(5, ""), ShouldEqual, "c")
		})

		Convey("随机结果总在候选内，相同种子结果相同", func() {
			voices := []string{"x", "y"}
			s1 := NewRandomVoiceSelector(voices, rand.New(rand.NewPCG(1, 2)))
			s2 := NewRandomVoiceSelector(voices, rand.New(rand.NewPCG(1, 2)))
			for i := 0; i < 20; i++ {
				v := s1.Choose(i, "")
				So(v, ShouldBeIn, voices)
				So(s2.Choose(i, ""), ShouldEqual, v)
			}
		})

		Convey("未指定候选时使用默认声音", func() {
			So(NewRandomVoiceSelector(nil, nil).Choose(0, ""), ShouldBeIn, DefaultVoices)
			So(NewRoundRobinVoiceSelector(nil).Choose(1, ""), ShouldEqual, DefaultVoices[1])
		})
	})
}

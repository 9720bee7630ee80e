package tts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tcolgate/mp3"
)

// ErrNoFrames 数据中没有可解析的 MP3 帧
var ErrNoFrames = errors.New("no mp3 frames found")

// MP3Duration 逐帧累加得到 MP3 时长（秒）
func MP3Duration(data []byte) (float64, error) {
	return decodeDuration(bytes.NewReader(data))
}

// MP3FileDuration 读取文件计算时长
func MP3FileDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mp3: %w", err)
	}
	defer f.Close()
	return decodeDuration(f)
}

func decodeDuration(r io.Reader) (float64, error) {
	dec := mp3.NewDecoder(r)

	var (
		frame   mp3.Frame
		skipped int
		total   float64
		frames  int
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, fmt.Errorf("decode mp3 frame: %w", err)
		}
		total += frame.Duration().Seconds()
		frames++
	}

	if frames == 0 {
		return 0, ErrNoFrames
	}
	return total, nil
}

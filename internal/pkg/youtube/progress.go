package youtube

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// progressReporter 只在整数百分比变化时输出进度
type progressReporter struct {
	size        int64
	start       time.Time
	lastPercent int
	now         func() time.Time
	reported    []int
}

func newProgressReporter(size int64, start time.Time) *progressReporter {
	return &progressReporter{size: size, start: start, lastPercent: -1, now: time.Now}
}

// Update 实现 googleapi.ProgressUpdater，total 未知时用文件大小
func (p *progressReporter) Update(current, total int64) {
	if total <= 0 {
		total = p.size
	}
	if total <= 0 {
		return
	}
	percent := int(current * 100 / total)
	percent = min(max(percent, 0), 100)
	if percent == p.lastPercent {
		return
	}
	p.lastPercent = percent
	p.reported = append(p.reported, percent)

	log.Info().
		Str("progress", fmt.Sprintf("%3d%%", percent)).
		Str("elapsed", FormatElapsed(p.now().Sub(p.start))).
		Msg("上传进度")
}

// FormatElapsed 格式化为 H:MM:SS
func FormatElapsed(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

package tts

import (
	"math/rand/v2"
	"sync"
)

// DefaultVoices 默认候选声音（日语女声）
var DefaultVoices = []string{"ja-JP-Standard-A", "ja-JP-Wavenet-A"}

// VoiceSelector 为每一句选择声音
type VoiceSelector interface {
	Choose(index int, sentence string) string
}

// RandomVoiceSelector 均匀随机选择
type RandomVoiceSelector struct {
	voices []string
	mu     sync.Mutex
	rnd    *rand.Rand
}

// NewRandomVoiceSelector 创建随机选择器，rnd 为 nil 时使用全局随机源
func NewRandomVoiceSelector(voices []string, rnd *rand.Rand) *RandomVoiceSelector {
	if len(voices) == 0 {
		voices = DefaultVoices
	}
	return &RandomVoiceSelector{voices: voices, rnd: rnd}
}

// Choose 实现 VoiceSelector
func (s *RandomVoiceSelector) Choose(int, string) string {
	if s.rnd == nil {
		return s.voices[rand.IntN(len(s.voices))]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voices[s.rnd.IntN(len(s.voices))]
}

// RoundRobinVoiceSelector 按句子序号轮流选择，结果可复现
type RoundRobinVoiceSelector struct {
	voices []string
}

// NewRoundRobinVoiceSelector 创建轮询选择器
func NewRoundRobinVoiceSelector(voices []string) *RoundRobinVoiceSelector {
	if len(voices) == 0 {
		voices = DefaultVoices
	}
	return &RoundRobinVoiceSelector{voices: voices}
}

// Choose 实现 VoiceSelector
func (s *RoundRobinVoiceSelector) Choose(index int, _ string) string {
	if index < 0 {
		index = -index
	}
	return s.voices[index%len(s.voices)]
}

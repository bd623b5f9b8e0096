package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zhitang/assistant-go/internal/config"
)

func TestMapSpeed(t *testing.T) {
	tests := []struct {
		speed float64
		want  int
	}{
		{0.1, -2},
		{0.5, -2},
		{1.0, 0},
		{1.25, 2},
		{2.0, 6},
		{3.0, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapSpeed(tt.speed), "speed=%v", tt.speed)
	}
}

func TestResolveVoice(t *testing.T) {
	c := NewClient(config.TTSConfig{DefaultVoice: "445566"})

	// 6位纯数字透传
	assert.Equal(t, "123456", c.ResolveVoice("123456"))

	// 其余回落默认音色
	assert.Equal(t, "445566", c.ResolveVoice("12345"))
	assert.Equal(t, "445566", c.ResolveVoice("12a456"))
	assert.Equal(t, "445566", c.ResolveVoice("abc"))
	assert.Equal(t, "445566", c.ResolveVoice(""))
}

func TestResolveVoiceBuiltinFallback(t *testing.T) {
	c := NewClient(config.TTSConfig{})

	assert.Equal(t, "7426720361753903141", c.ResolveVoice("voice-x"))
}

package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderPrompt(t *testing.T) {
	content := "你好{nickname}，今天是{current_datetime}，{unknown}保留。"
	rendered := RenderPrompt(content, map[string]string{
		"nickname":         "小明",
		"current_datetime": "2025年06月01日 10:00:00",
	})

	assert.Equal(t, "你好小明，今天是2025年06月01日 10:00:00，{unknown}保留。", rendered)
}

func TestRenderPromptEmptyVariables(t *testing.T) {
	content := "无占位符的内容"
	assert.Equal(t, content, RenderPrompt(content, nil))
}

func TestShouldAskHoneymoon(t *testing.T) {
	tests := []struct {
		duration string
		want     string
	}{
		{"", "未知"},
		{"abc", "未知"},
		{"0.5", "是"},
		{"2", "是"},
		{"2.5", "否"},
		{"10", "否"},
		{" 1 ", "是"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldAskHoneymoon(tt.duration), "duration=%q", tt.duration)
	}
}

func TestFormatChinaDatetime(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, "2025年01月02日 11:04:05", formatChinaDatetime(now))
}

func TestBuiltinPrompt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, chinaTZ)

	initial := builtinPrompt("initial", now)
	normal := builtinPrompt("normal", now)
	tagging := builtinPrompt("tagging", now)

	// 三类提示词都带时间信息头
	assert.True(t, len(initial) > 0)
	assert.Contains(t, initial, "## 当前时间信息")
	assert.Contains(t, normal, "## 当前时间信息")
	assert.Contains(t, tagging, "## 当前时间信息")

	assert.Contains(t, initial, "{should_ask_honeymoon}")
	assert.NotEqual(t, normal, initial)
	assert.NotEqual(t, normal, tagging)

	// 未知类型回落到普通对话提示词
	assert.Equal(t, normal, builtinPrompt("whatever", now))
}

func TestBuildTimeContext(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	ctx := buildTimeContext(now)

	// UTC 8:30 对应中国时区 16:30
	assert.Contains(t, ctx, "2025年06月01日 16:30:00")
	assert.Contains(t, ctx, "今天是星期0")
	assert.Contains(t, ctx, "2025年")
}

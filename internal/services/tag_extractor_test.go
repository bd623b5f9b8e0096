package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zhitang/assistant-go/internal/models"
)

func TestParseExtractedTagsChineseFields(t *testing.T) {
	raw := `[{"标签键":"性别","标签值":"男","置信度":0.9},{"tag_key":"cgm_usage","tag_value":"没有使用","confidence":0.8}]`

	result := ParseExtractedTags(raw)

	assert.Len(t, result, 2)
	assert.Equal(t, "gender", result[0].TagKey)
	assert.Equal(t, "男", result[0].TagValue)
	assert.Equal(t, 0.9, result[0].Confidence)

	assert.Equal(t, "cgm_usage", result[1].TagKey)
	assert.Equal(t, "false", result[1].TagValue)
	assert.Equal(t, 0.8, result[1].Confidence)
}

func TestParseExtractedTagsCodeFence(t *testing.T) {
	raw := "```json\n[{\"tag_key\":\"age\",\"tag_value\":\"10\"}]\n```"

	result := ParseExtractedTags(raw)

	assert.Len(t, result, 1)
	assert.Equal(t, "age", result[0].TagKey)
	assert.Equal(t, "10", result[0].TagValue)
	// 缺省置信度
	assert.Equal(t, 0.5, result[0].Confidence)
}

func TestParseExtractedTagsNumericValue(t *testing.T) {
	result := ParseExtractedTags(`[{"tag_key":"age","tag_value":12,"confidence":"0.7"}]`)

	assert.Len(t, result, 1)
	assert.Equal(t, "12", result[0].TagValue)
	assert.Equal(t, 0.7, result[0].Confidence)
}

func TestParseExtractedTagsKeySynonyms(t *testing.T) {
	result := ParseExtractedTags(`[{"标签键":"确诊时间","标签值":"2023年5月","置信度":0.85}]`)

	assert.Len(t, result, 1)
	assert.Equal(t, "diagnosis_date", result[0].TagKey)
	assert.Equal(t, "2023年5月", result[0].TagValue)
}

func TestParseExtractedTagsInvalidInput(t *testing.T) {
	assert.Nil(t, ParseExtractedTags("不是JSON"))
	assert.Nil(t, ParseExtractedTags(`{"tag_key":"age"}`))
	assert.Empty(t, ParseExtractedTags("[]"))
	assert.Empty(t, ParseExtractedTags(`[{"tag_key":"age"}]`))
	assert.Empty(t, ParseExtractedTags(`[{"tag_value":"10"}]`))
}

func TestBuildTranscript(t *testing.T) {
	messages := []models.ChatMessage{
		{Role: models.RoleUser, Content: "我孩子今年10岁"},
		{Role: models.RoleAssistant, Content: "好的，我记住了"},
	}

	transcript := BuildTranscript(messages)

	assert.Equal(t, "用户: 我孩子今年10岁\nAI助手: 好的，我记住了\n", transcript)
}

func TestBuildTranscriptLimitsAndTruncates(t *testing.T) {
	messages := make([]models.ChatMessage, 0, 12)
	for i := 0; i < 12; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		messages = append(messages, models.ChatMessage{Role: role, Content: "消息"})
	}
	// 最后一条超长
	long := strings.Repeat("长", 250)
	messages[11].Content = long

	transcript := BuildTranscript(messages)

	// 只取最近10条
	assert.Equal(t, 10, strings.Count(transcript, "\n"))
	// 单条截断到200个字符
	assert.Contains(t, transcript, strings.Repeat("长", 200))
	assert.NotContains(t, transcript, strings.Repeat("长", 201))
}

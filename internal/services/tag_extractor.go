package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zhitang/assistant-go/internal/llm"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/metrics"
	"github.com/zhitang/assistant-go/internal/models"
	"github.com/zhitang/assistant-go/internal/tags"
	"go.uber.org/zap"
)

// ExtractedTag 从对话中提取的单个标签
type ExtractedTag struct {
	TagKey     string  `json:"tag_key"`
	TagValue   string  `json:"tag_value"`
	Confidence float64 `json:"confidence"`
}

// TagExtractor 对话标签提取器。每轮对话结束后在后台运行，
// 把大模型识别出的用户信息写回标签存储。
type TagExtractor struct {
	llm     *llm.Client
	tags    *TagService
	prompts *PromptService
}

// NewTagExtractor 创建标签提取器
func NewTagExtractor(llmClient *llm.Client, tagService *TagService, promptService *PromptService) *TagExtractor {
	return &TagExtractor{llm: llmClient, tags: tagService, prompts: promptService}
}

// BuildTranscript 构建提取用的对话文本：取最近10条消息，
// 每条截断到200个字符并标注角色。
func BuildTranscript(messages []models.ChatMessage) string {
	if len(messages) > 10 {
		messages = messages[len(messages)-10:]
	}

	var sb strings.Builder
	for _, msg := range messages {
		role := "AI助手"
		if msg.Role == models.RoleUser {
			role = "用户"
		}
		content := []rune(msg.Content)
		if len(content) > 200 {
			content = content[:200]
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", role, string(content)))
	}
	return sb.String()
}

// ExtractFromTranscript 调用大模型提取标签列表
func (e *TagExtractor) ExtractFromTranscript(ctx context.Context, userID uint, transcript string) ([]ExtractedTag, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}

	systemPrompt := e.prompts.ResolveContent(userID, models.PromptTypeTagging, time.Now())
	resp, err := e.llm.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "请分析以下对话内容，提取用户标签：\n\n" + transcript},
	}, 0.3, 2048)
	if err != nil {
		metrics.TagExtractionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	extracted := ParseExtractedTags(resp)
	if len(extracted) > 0 {
		metrics.TagExtractionsTotal.WithLabelValues("success").Inc()
	} else {
		metrics.TagExtractionsTotal.WithLabelValues("empty").Inc()
	}
	return extracted, nil
}

// ParseExtractedTags 解析大模型输出。兼容中文字段名（标签键/标签值/置信度），
// 标签键做同义词归一，取值做规范化，解析失败返回空。
func ParseExtractedTags(raw string) []ExtractedTag {
	content := stripCodeFence(raw)
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content[start:end+1]), &items); err != nil {
		logger.Warn("标签提取结果不是有效JSON", zap.String("content", truncateForLog(content, 200)))
		return nil
	}

	result := make([]ExtractedTag, 0, len(items))
	for _, item := range items {
		key := pickString(item, "tag_key", "标签键")
		value := pickString(item, "tag_value", "标签值")
		if key == "" || value == "" {
			continue
		}

		confidence := pickFloat(item, "confidence", "置信度")
		if confidence <= 0 {
			confidence = 0.5
		}

		mappedKey := tags.CanonicalKey(key)
		result = append(result, ExtractedTag{
			TagKey:     mappedKey,
			TagValue:   tags.CanonicalValue(mappedKey, value),
			Confidence: confidence,
		})
	}
	return result
}

// Apply 将提取结果写回标签存储，返回实际更新数量。
// diagnosis_date同时推算disease_duration_years；未定义的键跳过。
func (e *TagExtractor) Apply(userID uint, extracted []ExtractedTag, conversationID string) int {
	updated := 0
	for _, tag := range extracted {
		changed, err := e.tags.SetValue(userID, tag.TagKey, tag.TagValue,
			models.TagSourceAIExtract, tag.Confidence, conversationID)
		if err != nil {
			logger.Debug("跳过标签写入",
				zap.String("tag_key", tag.TagKey),
				zap.Error(err))
			continue
		}
		if changed {
			updated++
		}

		if tag.TagKey == "diagnosis_date" {
			if duration := DeriveDiseaseDuration(tag.TagValue, time.Now()); duration != "" {
				if changed, err := e.tags.SetValue(userID, "disease_duration_years", duration,
					models.TagSourceAIExtract, tag.Confidence, conversationID); err == nil && changed {
					updated++
				}
			}
		}
	}

	if updated > 0 {
		logger.Info("对话标签提取完成",
			zap.Uint("user_id", userID),
			zap.Int("updated", updated))
	}
	return updated
}

func pickString(item map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := item[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
		// 数字或布尔值转为字符串
		var v interface{}
		if err := json.Unmarshal(raw, &v); err == nil && v != nil {
			return strings.TrimSpace(fmt.Sprintf("%v", v))
		}
	}
	return ""
}

func pickFloat(item map[string]json.RawMessage, keys ...string) float64 {
	for _, k := range keys {
		raw, ok := item[k]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			var parsed float64
			if _, err := fmt.Sscanf(s, "%f", &parsed); err == nil {
				return parsed
			}
		}
	}
	return 0
}

func truncateForLog(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/llm"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/metrics"
	"github.com/zhitang/assistant-go/internal/models"
	"go.uber.org/zap"
)

// ChatEvent 对话流事件，按SSE格式下发给客户端
type ChatEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// 对话流事件名（Coze兼容格式）
const (
	EventChatCreated     = "conversation.chat.created"
	EventMessageDelta    = "conversation.message.delta"
	EventMessageFollowUp = "conversation.message.follow_up"
	EventChatCompleted   = "conversation.chat.completed"
	EventError           = "error"
)

// ChatService 对话编排：提示词决策、知识召回、流式生成与落库
type ChatService struct {
	llm        *llm.Client
	faq        *FAQService
	kb         *KnowledgeService
	prompts    *PromptService
	onboarding *OnboardingService
	history    *HistoryService
	tags       *TagService
	extractor  *TagExtractor
}

// NewChatService 创建对话服务
func NewChatService(
	llmClient *llm.Client,
	faq *FAQService,
	kb *KnowledgeService,
	prompts *PromptService,
	onboarding *OnboardingService,
	history *HistoryService,
	tagService *TagService,
	extractor *TagExtractor,
) *ChatService {
	return &ChatService{
		llm:        llmClient,
		faq:        faq,
		kb:         kb,
		prompts:    prompts,
		onboarding: onboarding,
		history:    history,
		tags:       tagService,
		extractor:  extractor,
	}
}

// NewConversationID 生成会话ID
func NewConversationID(userID uint) string {
	return fmt.Sprintf("chat_%d_%d", userID, time.Now().UnixMilli())
}

// StreamChat 处理一轮流式对话，返回的事件通道在本轮结束后关闭。
// 上游中断或客户端断开时已生成的部分回复照常落库。
func (s *ChatService) StreamChat(ctx context.Context, userID uint, message, conversationID string) <-chan ChatEvent {
	out := make(chan ChatEvent, 32)

	go func() {
		defer close(out)
		s.runTurn(ctx, userID, message, conversationID, out)
	}()

	return out
}

func (s *ChatService) runTurn(ctx context.Context, userID uint, message, conversationID string, out chan<- ChatEvent) {
	promptType := s.onboarding.PromptTypeFor(userID)
	metrics.ChatTurnsTotal.WithLabelValues(promptType).Inc()

	if conversationID == "" {
		conversationID = NewConversationID(userID)
		logger.Info("自动生成会话ID", zap.String("conversation_id", conversationID))
	}

	logger.Info("开始处理流式对话",
		zap.Uint("user_id", userID),
		zap.String("conversation_id", conversationID),
		zap.String("prompt_type", promptType))

	// 先落用户消息，再取历史
	if err := s.history.EnsureSession(userID, conversationID); err != nil {
		s.emitError(out, conversationID, err)
		return
	}
	if err := s.history.SaveMessage(userID, conversationID, models.RoleUser, message); err != nil {
		s.emitError(out, conversationID, err)
		return
	}
	s.history.InvalidateLatestSession(ctx, userID)

	s.emit(out, ChatEvent{Event: EventChatCreated, Data: map[string]interface{}{
		"conversation_id": conversationID,
		"chat_id":         conversationID,
	}})

	chatCfg := config.AppConfig.Chat
	historyMsgs, err := s.history.BuildLLMHistory(userID, conversationID, message, chatCfg.HistoryLimit)
	if err != nil {
		logger.Warn("获取对话历史失败，按空历史继续", zap.Error(err))
		historyMsgs = nil
	}

	knowledgeContext := s.buildKnowledgeContext(ctx, userID, message)

	// 组装消息：系统提示词 + 历史 + 当前消息（附知识上下文）
	now := time.Now()
	systemPrompt := RenderPrompt(
		s.prompts.ResolveContent(userID, promptType, now),
		s.prompts.BuildUserVariables(userID, now))

	messages := make([]llm.Message, 0, len(historyMsgs)+2)
	messages = append(messages, llm.Message{Role: models.RoleSystem, Content: systemPrompt})
	for _, msg := range historyMsgs {
		if msg.Role == models.RoleUser || msg.Role == models.RoleAssistant {
			messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
		}
	}
	finalMessage := message
	if knowledgeContext != "" {
		finalMessage = message + "\n\n" + knowledgeContext
	}
	messages = append(messages, llm.Message{Role: models.RoleUser, Content: finalMessage})

	stream, err := s.llm.ChatStream(ctx, messages, 0, 0)
	if err != nil {
		s.emitError(out, conversationID, err)
		return
	}

	var response string
	streamErr := error(nil)
	for delta := range stream {
		if delta.Err != nil {
			streamErr = delta.Err
			break
		}
		if delta.Done {
			break
		}
		response += delta.Content
		s.emit(out, ChatEvent{Event: EventMessageDelta, Data: map[string]interface{}{
			"content":         delta.Content,
			"conversation_id": conversationID,
		}})
	}

	// 部分回复也落库，保证断流后历史完整
	saved := response
	if saved == "" {
		saved = "AI回复内容为空"
	}
	if err := s.history.SaveMessage(userID, conversationID, models.RoleAssistant, saved); err != nil {
		logger.Error("保存AI回复失败", zap.Error(err))
	}
	s.history.InvalidateLatestSession(ctx, userID)

	if streamErr != nil {
		logger.Error("流式生成中断", zap.Error(streamErr), zap.Int("partial_len", len(response)))
		s.emitError(out, conversationID, streamErr)
		return
	}

	s.emit(out, ChatEvent{Event: EventMessageFollowUp, Data: map[string]interface{}{
		"content":         "AI回复完成",
		"conversation_id": conversationID,
	}})
	s.emit(out, ChatEvent{Event: EventChatCompleted, Data: map[string]interface{}{
		"conversation_id": conversationID,
	}})

	s.postTurn(userID, conversationID, promptType)
}

// buildKnowledgeContext 并行执行FAQ检索与知识库召回，拼出知识上下文块
func (s *ChatService) buildKnowledgeContext(ctx context.Context, userID uint, query string) string {
	chatCfg := config.AppConfig.Chat

	var (
		wg      sync.WaitGroup
		faqHits []FAQMatch
		kbHits  []KBChunk
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		faqHits = s.faq.Search(query, chatCfg.FAQTopK, chatCfg.FAQMinScore)
	}()
	go func() {
		defer wg.Done()
		chunks, err := s.kb.Retrieve(ctx, query, chatCfg.KBTopK, chatCfg.KBScoreThreshold)
		if err != nil {
			// 召回失败降级为无文档上下文
			logger.Warn("知识库召回失败", zap.Error(err))
			return
		}
		kbHits = chunks
	}()
	wg.Wait()

	context := ""

	if userInfo := s.formatUserTags(userID); userInfo != "" {
		context += "\n## 用户个人信息：\n" + userInfo + "\n"
	}

	if len(faqHits) > 0 {
		context += "\n## 相关FAQ参考：\n"
		for i, hit := range faqHits {
			context += fmt.Sprintf("### FAQ%d：\n问题：%s\n答案：%s\n\n", i+1, hit.Question, hit.Answer)
		}
	}

	if len(kbHits) > 0 {
		context += "\n## 相关文档参考：\n"
		for i, chunk := range kbHits {
			content := []rune(chunk.Content)
			if len(content) > 500 {
				content = content[:500]
			}
			context += fmt.Sprintf("### 文档%d：\n内容：%s...\n相关度：%.3f\n\n", i+1, string(content), chunk.Score)
		}
	}

	if len(faqHits) == 0 && len(kbHits) == 0 {
		logger.Debug("未检索到相关知识", zap.Uint("user_id", userID))
	}
	return context
}

// formatUserTags 有值标签按分类格式化为个性化上下文
func (s *ChatService) formatUserTags(userID uint) string {
	views, _, err := s.tags.GetUserTags(userID, "", 1, 500)
	if err != nil {
		logger.Warn("获取用户标签失败", zap.Uint("user_id", userID), zap.Error(err))
		return ""
	}

	categoryNames := []struct {
		key  string
		name string
	}{
		{models.TagCategoryBasic, "基本信息"},
		{models.TagCategoryHealth, "健康信息"},
		{models.TagCategoryBehavior, "行为偏好"},
		{models.TagCategoryStats, "统计信息"},
	}

	grouped := make(map[string][]models.UserTagView)
	for _, v := range views {
		if v.TagValue == "" || v.TagValue == "null" {
			continue
		}
		grouped[v.TagCategory] = append(grouped[v.TagCategory], v)
	}

	result := ""
	for _, cat := range categoryNames {
		tags := grouped[cat.key]
		if len(tags) == 0 {
			continue
		}
		if result != "" {
			result += "\n"
		}
		result += "### " + cat.name + "：\n"
		for i, t := range tags {
			result += fmt.Sprintf("- %s: %s", t.TagName, t.TagValue)
			if i < len(tags)-1 {
				result += "\n"
			}
		}
	}
	return result
}

// postTurn 对话收尾：标签提取与引导完成检查
func (s *ChatService) postTurn(userID uint, conversationID, promptType string) {
	messages, err := s.history.GetMessages(userID, conversationID, 50)
	if err != nil || len(messages) < 2 {
		return
	}

	transcript := BuildTranscript(messages)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	extracted, err := s.extractor.ExtractFromTranscript(ctx, userID, transcript)
	if err != nil {
		logger.Warn("对话标签提取失败", zap.Uint("user_id", userID), zap.Error(err))
	} else if len(extracted) > 0 {
		s.extractor.Apply(userID, extracted, conversationID)
	}

	if promptType == models.PromptTypeInitial {
		s.onboarding.CheckAndComplete(userID, conversationID)
	}
}

func (s *ChatService) emit(out chan<- ChatEvent, evt ChatEvent) {
	metrics.SSEEventsTotal.WithLabelValues(evt.Event).Inc()
	out <- evt
}

func (s *ChatService) emitError(out chan<- ChatEvent, conversationID string, err error) {
	logger.Error("流式对话失败", zap.String("conversation_id", conversationID), zap.Error(err))
	s.emit(out, ChatEvent{Event: EventError, Data: map[string]interface{}{
		"message":         err.Error(),
		"conversation_id": conversationID,
	}})
}

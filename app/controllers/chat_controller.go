package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/services"
	"go.uber.org/zap"
)

// ChatController 对话接口：流式对话、历史、会话与导出
type ChatController struct {
	BaseController
}

// StreamChatRequest 流式对话请求
type StreamChatRequest struct {
	UserID         uint   `json:"user_id" validate:"required"`
	Message        string `json:"message"`
	MessageContent string `json:"message_content"`
	ConversationID string `json:"conversation_id"`
	EnableTTS      bool   `json:"enable_tts"`
}

func (r *StreamChatRequest) text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.MessageContent
}

// sseWriter SSE下发辅助
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: flusher}
}

// send 按 event:/data: 两行格式写出一个事件并立即刷出
func (s *sseWriter) send(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Stream 流式对话 POST /api/chat/stream
func (c *ChatController) Stream() {
	c.streamChat()
}

// StreamWithTTS 流式对话（客户端按需调用TTS）POST /api/chat/stream_with_tts
func (c *ChatController) StreamWithTTS() {
	c.streamChat()
}

func (c *ChatController) streamChat() {
	var req StreamChatRequest
	if !c.parseBody(&req) {
		return
	}
	if req.text() == "" {
		c.BadRequest("消息内容不能为空")
		return
	}

	writer := newSSEWriter(c.Ctx.ResponseWriter)
	ctx := c.Ctx.Request.Context()

	events := chatService().StreamChat(ctx, req.UserID, req.text(), req.ConversationID)
	for evt := range events {
		if err := writer.send(evt.Event, evt.Data); err != nil {
			// 客户端断开，编排侧继续消费直至落库完成
			logger.Info("SSE客户端断开", zap.Uint("user_id", req.UserID), zap.Error(err))
			for range events {
			}
			break
		}
	}
}

// History 问答记录查询 GET /api/chat/history
func (c *ChatController) History() {
	filter := c.buildHistoryFilter()
	page := c.queryInt("page", 1)
	pageSize := c.queryInt("page_size", c.queryInt("limit", 20))

	turns, total, err := historyService().QueryPairedTurns(filter, page, pageSize)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{
		"records":   turns,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (c *ChatController) buildHistoryFilter() services.HistoryFilter {
	filter := services.HistoryFilter{
		UserID:         c.queryUserID(),
		ConversationID: c.GetString("conversation_id"),
		Username:       c.GetString("username"),
		PhoneNumber:    c.GetString("phone_number"),
	}
	if v := c.GetString("start_date"); v != "" {
		if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			filter.StartTime = &t
		}
	}
	if v := c.GetString("end_date"); v != "" {
		if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			end := t.Add(24*time.Hour - time.Second)
			filter.EndTime = &end
		}
	}
	return filter
}

// Sessions 会话列表 GET /api/chat/sessions
func (c *ChatController) Sessions() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	page := c.queryInt("page", 1)
	pageSize := c.queryInt("page_size", 20)

	sessions, total, err := historyService().ListSessions(userID, page, pageSize)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{
		"sessions":  sessions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// LatestSession 最近会话 GET /api/chat/sessions/latest
func (c *ChatController) LatestSession() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	session, err := historyService().LatestSession(c.Ctx.Request.Context(), userID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(session)
}

// DeleteSession 删除会话 DELETE /api/chat/sessions/:conversation_id
func (c *ChatController) DeleteSession() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	conversationID := c.Ctx.Input.Param(":conversation_id")
	if conversationID == "" {
		c.BadRequest("缺少conversation_id参数")
		return
	}
	if err := historyService().DeleteConversation(userID, conversationID); err != nil {
		c.Fail(err)
		return
	}
	c.OKMessage(nil, "会话已删除")
}

// OnboardingStatus 引导收集状态 GET /api/chat/onboarding/status
func (c *ChatController) OnboardingStatus() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	status, err := onboardingService().Status(userID)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(status)
}

// OnboardingReset 清除引导完成标记 POST /api/chat/onboarding/reset
func (c *ChatController) OnboardingReset() {
	userID, ok := c.requireUserID()
	if !ok {
		return
	}
	if err := onboardingService().ResetOnboarding(userID); err != nil {
		c.Fail(err)
		return
	}
	c.OKMessage(nil, "引导收集状态已重置")
}

// ExportHistoryRequest 导出请求
type ExportHistoryRequest struct {
	UserID         uint   `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	Username       string `json:"username"`
	PhoneNumber    string `json:"phone_number"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	Format         string `json:"format" validate:"omitempty,oneof=csv excel"`
}

// ExportHistory 导出问答记录 POST /api/chat/history/export
func (c *ChatController) ExportHistory() {
	var req ExportHistoryRequest
	if !c.parseBody(&req) {
		return
	}

	filter := services.HistoryFilter{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Username:       req.Username,
		PhoneNumber:    req.PhoneNumber,
	}
	if req.StartDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", req.StartDate, time.Local); err == nil {
			filter.StartTime = &t
		}
	}
	if req.EndDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", req.EndDate, time.Local); err == nil {
			end := t.Add(24*time.Hour - time.Second)
			filter.EndTime = &end
		}
	}

	stamp := time.Now().Format("20060102_150405")
	w := c.Ctx.ResponseWriter

	switch req.Format {
	case "excel":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="chat_history_%s.xlsx"`, stamp))
		if err := historyService().ExportExcel(filter, w); err != nil {
			logger.Error("导出Excel失败", zap.Error(err))
		}
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="chat_history_%s.csv"`, stamp))
		if err := historyService().ExportCSV(filter, w); err != nil {
			logger.Error("导出CSV失败", zap.Error(err))
		}
	}
}

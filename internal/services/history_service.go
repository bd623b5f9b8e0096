package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/database"
	"github.com/zhitang/assistant-go/internal/errors"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HistoryFilter 问答记录查询条件
type HistoryFilter struct {
	UserID         uint
	ConversationID string
	Username       string
	PhoneNumber    string
	StartTime      *time.Time
	EndTime        *time.Time
}

// HistoryService 对话历史存储：会话、消息、问答对派生与导出
type HistoryService struct {
	db *gorm.DB
}

// NewHistoryService 创建历史服务
func NewHistoryService() *HistoryService {
	return &HistoryService{db: database.DB}
}

// NewHistoryServiceWithDB 使用指定连接创建历史服务（测试用）
func NewHistoryServiceWithDB(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// EnsureSession 确保会话存在，不存在则创建
func (s *HistoryService) EnsureSession(userID uint, conversationID string) error {
	var session models.ChatSession
	err := s.db.Where("conversation_id = ?", conversationID).First(&session).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return errors.NewPersistenceError("查询会话失败", err)
	}

	session = models.ChatSession{
		ConversationID: conversationID,
		UserID:         userID,
		Status:         "active",
	}
	if err := s.db.Create(&session).Error; err != nil {
		return errors.NewPersistenceError("创建会话失败", err)
	}
	return nil
}

// SaveMessage 保存一条消息并刷新会话时间
func (s *HistoryService) SaveMessage(userID uint, conversationID, role, content string) error {
	msg := models.ChatMessage{
		UserID:         userID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return errors.NewPersistenceError("保存消息失败", err)
	}

	s.db.Model(&models.ChatSession{}).
		Where("conversation_id = ?", conversationID).
		Update("updated_at", time.Now())
	return nil
}

// GetMessages 获取会话最近消息，按时间正序返回。
// 倒序取两倍限额再截断，保证正序窗口落在最新消息上。
func (s *HistoryService) GetMessages(userID uint, conversationID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = config.AppConfig.Chat.HistoryLimit
	}
	if limit <= 0 {
		limit = 60
	}

	var messages []models.ChatMessage
	err := s.db.Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Order("created_at DESC, id DESC").
		Limit(limit * 2).
		Find(&messages).Error
	if err != nil {
		return nil, errors.NewPersistenceError("查询对话历史失败", err)
	}

	// 反转为正序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// BuildLLMHistory 构建发给大模型的历史，剔除刚写入的当前用户消息
func (s *HistoryService) BuildLLMHistory(userID uint, conversationID, currentMessage string, limit int) ([]models.ChatMessage, error) {
	messages, err := s.GetMessages(userID, conversationID, limit)
	if err != nil {
		return nil, err
	}

	// 当前消息已先落库，从历史尾部剔除一条内容相同的用户消息
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser && messages[i].Content == currentMessage {
			messages = append(messages[:i], messages[i+1:]...)
			break
		}
	}
	return messages, nil
}

// ListSessions 列出用户会话（按更新时间倒序）
func (s *HistoryService) ListSessions(userID uint, page, pageSize int) ([]models.ChatSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.Model(&models.ChatSession{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.NewPersistenceError("查询会话列表失败", err)
	}

	var sessions []models.ChatSession
	err := query.Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, errors.NewPersistenceError("查询会话列表失败", err)
	}
	return sessions, total, nil
}

// LatestSession 获取用户最近会话，优先读Redis缓存
func (s *HistoryService) LatestSession(ctx context.Context, userID uint) (*models.ChatSession, error) {
	cacheKey := fmt.Sprintf("chat:latest_session:%d", userID)

	if database.RedisClient != nil {
		if cached, err := database.RedisClient.Get(ctx, cacheKey).Result(); err == nil {
			var session models.ChatSession
			if json.Unmarshal([]byte(cached), &session) == nil {
				return &session, nil
			}
		}
	}

	var session models.ChatSession
	err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&session).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NewNotFoundError("session")
	}
	if err != nil {
		return nil, errors.NewPersistenceError("查询最近会话失败", err)
	}

	if database.RedisClient != nil {
		ttl := time.Duration(config.AppConfig.Redis.TTL) * time.Second
		if ttl <= 0 {
			ttl = time.Hour
		}
		if data, err := json.Marshal(session); err == nil {
			if err := database.RedisClient.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
				logger.Debug("写入最近会话缓存失败", zap.Error(err))
			}
		}
	}
	return &session, nil
}

// InvalidateLatestSession 会话有新消息后清缓存
func (s *HistoryService) InvalidateLatestSession(ctx context.Context, userID uint) {
	if database.RedisClient == nil {
		return
	}
	cacheKey := fmt.Sprintf("chat:latest_session:%d", userID)
	if err := database.RedisClient.Del(ctx, cacheKey).Err(); err != nil {
		logger.Debug("清除最近会话缓存失败", zap.Error(err))
	}
}

// PairedTurns 派生问答对：消息按时间正序，user后紧跟assistant才算一对。
// 落单的user消息（无回复）与孤立的assistant消息不计入。
func PairedTurns(messages []models.ChatMessage, users map[uint]models.User) []models.PairedTurn {
	turns := make([]models.PairedTurn, 0)
	for i := 0; i < len(messages)-1; i++ {
		if messages[i].Role != models.RoleUser || messages[i+1].Role != models.RoleAssistant {
			continue
		}
		turn := models.PairedTurn{
			ConversationID: messages[i].ConversationID,
			UserID:         messages[i].UserID,
			UserQuestion:   messages[i].Content,
			AIAnswer:       messages[i+1].Content,
			QuestionTime:   messages[i].CreatedAt,
			AnswerTime:     messages[i+1].CreatedAt,
		}
		if u, ok := users[messages[i].UserID]; ok {
			turn.Username = u.Username
			turn.Nickname = u.Nickname
			turn.PhoneNumber = u.PhoneNumber
		}
		turns = append(turns, turn)
		i++ // 跳过已配对的assistant消息
	}
	return turns
}

// QueryPairedTurns 按条件查询问答对（分页作用于配对后的结果）
func (s *HistoryService) QueryPairedTurns(filter HistoryFilter, page, pageSize int) ([]models.PairedTurn, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	messages, users, err := s.queryFilteredMessages(filter)
	if err != nil {
		return nil, 0, err
	}

	turns := PairedTurns(messages, users)
	total := int64(len(turns))

	start := (page - 1) * pageSize
	if start >= len(turns) {
		return []models.PairedTurn{}, total, nil
	}
	end := start + pageSize
	if end > len(turns) {
		end = len(turns)
	}
	return turns[start:end], total, nil
}

// queryFilteredMessages 按条件取消息（正序）与涉及的用户档案
func (s *HistoryService) queryFilteredMessages(filter HistoryFilter) ([]models.ChatMessage, map[uint]models.User, error) {
	query := s.db.Model(&models.ChatMessage{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ConversationID != "" {
		query = query.Where("conversation_id = ?", filter.ConversationID)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}
	if filter.Username != "" || filter.PhoneNumber != "" {
		sub := s.db.Model(&models.User{}).Select("id")
		if filter.Username != "" {
			sub = sub.Where("username LIKE ?", "%"+filter.Username+"%")
		}
		if filter.PhoneNumber != "" {
			sub = sub.Where("phone_number LIKE ?", "%"+filter.PhoneNumber+"%")
		}
		query = query.Where("user_id IN (?)", sub)
	}

	var messages []models.ChatMessage
	if err := query.Order("conversation_id, created_at, id").Find(&messages).Error; err != nil {
		return nil, nil, errors.NewPersistenceError("查询对话记录失败", err)
	}

	userIDs := make([]uint, 0)
	seen := make(map[uint]bool)
	for _, m := range messages {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			userIDs = append(userIDs, m.UserID)
		}
	}

	users := make(map[uint]models.User)
	if len(userIDs) > 0 {
		var rows []models.User
		if err := s.db.Where("id IN ?", userIDs).Find(&rows).Error; err == nil {
			for _, u := range rows {
				users[u.ID] = u
			}
		}
	}
	return messages, users, nil
}

var exportHeader = []string{"会话ID", "用户ID", "用户名", "昵称", "手机号", "用户提问", "AI回答", "提问时间", "回答时间"}

func turnToRow(t models.PairedTurn) []string {
	return []string{
		t.ConversationID,
		fmt.Sprintf("%d", t.UserID),
		t.Username,
		t.Nickname,
		t.PhoneNumber,
		t.UserQuestion,
		t.AIAnswer,
		t.QuestionTime.Format("2006-01-02 15:04:05"),
		t.AnswerTime.Format("2006-01-02 15:04:05"),
	}
}

// ExportCSV 导出问答对为CSV（带UTF-8 BOM方便Excel打开）
func (s *HistoryService) ExportCSV(filter HistoryFilter, w io.Writer) error {
	messages, users, err := s.queryFilteredMessages(filter)
	if err != nil {
		return err
	}
	turns := PairedTurns(messages, users)

	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, t := range turns {
		if err := writer.Write(turnToRow(t)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportExcel 导出问答对为xlsx
func (s *HistoryService) ExportExcel(filter HistoryFilter, w io.Writer) error {
	messages, users, err := s.queryFilteredMessages(filter)
	if err != nil {
		return err
	}
	turns := PairedTurns(messages, users)

	ss := spreadsheet.New()
	defer ss.Close()
	sheet := ss.AddSheet()
	sheet.SetName("问答记录")

	headerRow := sheet.AddRow()
	for _, h := range exportHeader {
		headerRow.AddCell().SetString(h)
	}
	for _, t := range turns {
		row := sheet.AddRow()
		for _, cell := range turnToRow(t) {
			row.AddCell().SetString(cell)
		}
	}

	if err := ss.Validate(); err != nil {
		logger.Warn("导出表格校验告警", zap.Error(err))
	}
	return ss.Save(w)
}

// DeleteConversation 删除会话及其全部消息
func (s *HistoryService) DeleteConversation(userID uint, conversationID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND conversation_id = ?", userID, conversationID).
			Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		result := tx.Where("user_id = ? AND conversation_id = ?", userID, conversationID).
			Delete(&models.ChatSession{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		return errors.NewNotFoundError("conversation")
	}
	if err != nil {
		return errors.NewPersistenceError("删除会话失败", err)
	}
	return nil
}

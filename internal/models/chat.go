package models

import (
	"time"
)

// ChatSession 会话表，一个用户可有多个会话
type ChatSession struct {
	ID             uint      `gorm:"primaryKey;column:id" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;size:255;not null;uniqueIndex" json:"conversation_id"`
	UserID         uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Status         string    `gorm:"column:status;size:20;not null;default:active" json:"status"`
	CreatedAt      time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage 对话消息表
type ChatMessage struct {
	ID             uint      `gorm:"primaryKey;column:id" json:"id"`
	UserID         uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	ConversationID string    `gorm:"column:conversation_id;size:255;not null;index" json:"conversation_id"`
	Role           string    `gorm:"column:role;size:20;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// PairedTurn 派生的问答对视图，不落库
type PairedTurn struct {
	ConversationID string    `json:"conversation_id"`
	UserID         uint      `json:"user_id"`
	Username       string    `json:"username"`
	Nickname       string    `json:"nickname"`
	PhoneNumber    string    `json:"phone_number"`
	UserQuestion   string    `json:"user_question"`
	AIAnswer       string    `json:"ai_answer"`
	QuestionTime   time.Time `json:"question_time"`
	AnswerTime     time.Time `json:"answer_time"`
}

package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zhitang/assistant-go/internal/models"
)

func msgAt(userID uint, role, content string, minute int) models.ChatMessage {
	return models.ChatMessage{
		UserID:         userID,
		ConversationID: "chat_1_100",
		Role:           role,
		Content:        content,
		CreatedAt:      time.Date(2025, 6, 1, 10, minute, 0, 0, time.UTC),
	}
}

func TestPairedTurns(t *testing.T) {
	messages := []models.ChatMessage{
		msgAt(1, models.RoleUser, "问题一", 0),
		msgAt(1, models.RoleAssistant, "回答一", 1),
		msgAt(1, models.RoleUser, "问题二", 2),
		msgAt(1, models.RoleAssistant, "回答二", 3),
		msgAt(1, models.RoleUser, "没有回复的问题", 4),
	}
	users := map[uint]models.User{
		1: {ID: 1, Username: "zhangsan", Nickname: "小张", PhoneNumber: "13800000001"},
	}

	turns := PairedTurns(messages, users)

	assert.Len(t, turns, 2)
	assert.Equal(t, "问题一", turns[0].UserQuestion)
	assert.Equal(t, "回答一", turns[0].AIAnswer)
	assert.Equal(t, "问题二", turns[1].UserQuestion)
	assert.Equal(t, "回答二", turns[1].AIAnswer)

	assert.Equal(t, "zhangsan", turns[0].Username)
	assert.Equal(t, "小张", turns[0].Nickname)
	assert.Equal(t, "13800000001", turns[0].PhoneNumber)
	assert.Equal(t, "chat_1_100", turns[0].ConversationID)
	assert.True(t, turns[0].AnswerTime.After(turns[0].QuestionTime))
}

func TestPairedTurnsSkipsOrphanAssistant(t *testing.T) {
	messages := []models.ChatMessage{
		msgAt(1, models.RoleAssistant, "孤立回答", 0),
		msgAt(1, models.RoleUser, "问题", 1),
		msgAt(1, models.RoleAssistant, "回答", 2),
	}

	turns := PairedTurns(messages, nil)

	assert.Len(t, turns, 1)
	assert.Equal(t, "问题", turns[0].UserQuestion)
	assert.Empty(t, turns[0].Username)
}

func TestPairedTurnsConsecutiveUserMessages(t *testing.T) {
	messages := []models.ChatMessage{
		msgAt(1, models.RoleUser, "问题一", 0),
		msgAt(1, models.RoleUser, "问题二", 1),
		msgAt(1, models.RoleAssistant, "回答二", 2),
	}

	turns := PairedTurns(messages, nil)

	assert.Len(t, turns, 1)
	assert.Equal(t, "问题二", turns[0].UserQuestion)
	assert.Equal(t, "回答二", turns[0].AIAnswer)
}

func TestPairedTurnsEmpty(t *testing.T) {
	assert.Empty(t, PairedTurns(nil, nil))
	assert.Empty(t, PairedTurns([]models.ChatMessage{
		msgAt(1, models.RoleUser, "只有提问", 0),
	}, nil))
}

package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhitang/assistant-go/internal/models"
	"github.com/zhitang/assistant-go/internal/tags"
)

func fullTagMap() map[string]string {
	m := map[string]string{
		"age":                    "45",
		"gender":                 "男",
		"diabetes_type":          "2型",
		"disease_duration_years": "5",
		"insulin_route":          "胰岛素笔注射",
		"cgm_usage":              "true",
	}
	m[tags.OnboardingCompletedKey] = "true"
	return m
}

func TestOnboardingComplete(t *testing.T) {
	assert.True(t, onboardingComplete(fullTagMap()))

	// 完成标记缺失或为false
	m := fullTagMap()
	delete(m, tags.OnboardingCompletedKey)
	assert.False(t, onboardingComplete(m))

	m = fullTagMap()
	m[tags.OnboardingCompletedKey] = "false"
	assert.False(t, onboardingComplete(m))

	// 标记仍为true但必填标签被清空
	for _, key := range tags.RequiredOnboardingKeys {
		m = fullTagMap()
		m[key] = "  "
		assert.False(t, onboardingComplete(m), "key=%s", key)

		m = fullTagMap()
		delete(m, key)
		assert.False(t, onboardingComplete(m), "key=%s", key)
	}
}

// expectUserTagRows 预置一次GetUserTagMap对应的联表查询
func expectUserTagRows(mock sqlmock.Sqlmock, tagMap map[string]string) {
	mock.ExpectQuery(`SELECT count\(\*\) FROM user_tag_definitions d`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(len(tagMap)))

	rows := sqlmock.NewRows([]string{"tag_key", "tag_value"})
	for key, value := range tagMap {
		rows.AddRow(key, value)
	}
	mock.ExpectQuery(`SELECT d\.tag_id, d\.tag_key`).WillReturnRows(rows)
}

func TestPromptTypeForMissingRequiredTag(t *testing.T) {
	tagService, mock := newMockedTagService(t)
	service := NewOnboardingService(tagService)

	// age被删除后标记还在，应回到initial而不是继续normal
	tagMap := fullTagMap()
	tagMap["age"] = ""
	expectUserTagRows(mock, tagMap)

	assert.Equal(t, models.PromptTypeInitial, service.PromptTypeFor(7))

	expectUserTagRows(mock, tagMap)
	status, err := service.Status(7)
	require.NoError(t, err)
	assert.False(t, status.Completed)
	assert.Equal(t, models.PromptTypeInitial, status.CurrentPromptType)
	assert.Contains(t, status.Missing, "age")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromptTypeForCollectedUser(t *testing.T) {
	tagService, mock := newMockedTagService(t)
	service := NewOnboardingService(tagService)

	expectUserTagRows(mock, fullTagMap())
	assert.Equal(t, models.PromptTypeNormal, service.PromptTypeFor(7))

	expectUserTagRows(mock, fullTagMap())
	status, err := service.Status(7)
	require.NoError(t, err)
	assert.True(t, status.Completed)
	assert.Equal(t, models.PromptTypeNormal, status.CurrentPromptType)
	assert.Empty(t, status.Missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

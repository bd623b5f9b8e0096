package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestDeriveDiseaseDuration(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		diagnosis string
		want      string
	}{
		{"2020年3月", "5"},
		{"2020-03-15", "5"},
		{"2025", "0"},
		{" 2019年确诊 ", "6"},
		{"2026-01-01", ""},
		{"abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveDiseaseDuration(tt.diagnosis, now), "diagnosis=%q", tt.diagnosis)
	}
}

func newMockedTagService(t *testing.T) (*TagService, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewTagServiceWithDB(db), mock
}

func TestGetDefinitions(t *testing.T) {
	service, mock := newMockedTagService(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_tag_definitions"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "user_tag_definitions"`).
		WillReturnRows(sqlmock.NewRows([]string{"tag_id", "tag_key", "tag_name", "tag_category", "value_type", "display_order", "is_active"}).
			AddRow(4, "diabetes_type", "糖尿病类型", "health", "string", 10, true).
			AddRow(8, "cgm_usage", "是否使用动态血糖仪", "health", "bool", 14, true))

	defs, total, err := service.GetDefinitions("health", 1, 20)

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, defs, 2)
	assert.Equal(t, "diabetes_type", defs[0].TagKey)
	assert.Equal(t, "health", defs[0].TagCategory)
	assert.Equal(t, "cgm_usage", defs[1].TagKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zhitang/assistant-go/internal/database"
	"github.com/zhitang/assistant-go/internal/errors"
	"github.com/zhitang/assistant-go/internal/kafka"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagService 用户标签服务：定义、取值、变更历史
type TagService struct {
	db *gorm.DB
}

// NewTagService 创建标签服务
func NewTagService() *TagService {
	return &TagService{db: database.DB}
}

// NewTagServiceWithDB 使用指定连接创建标签服务（测试用）
func NewTagServiceWithDB(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

// GetDefinitions 获取标签定义列表
func (s *TagService) GetDefinitions(category string, page, pageSize int) ([]models.TagDefinition, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	query := s.db.Model(&models.TagDefinition{}).Where("is_active = ?", true)
	if category != "" {
		query = query.Where("tag_category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.NewPersistenceError("查询标签定义失败", err)
	}

	var defs []models.TagDefinition
	err := query.Order("display_order, tag_id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&defs).Error
	if err != nil {
		return nil, 0, errors.NewPersistenceError("查询标签定义失败", err)
	}

	return defs, total, nil
}

// GetDefinitionByKey 根据键获取标签定义
func (s *TagService) GetDefinitionByKey(tagKey string) (*models.TagDefinition, error) {
	var def models.TagDefinition
	err := s.db.Where("tag_key = ? AND is_active = ?", tagKey, true).First(&def).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NewUnknownTagError(tagKey)
	}
	if err != nil {
		return nil, errors.NewPersistenceError("查询标签定义失败", err)
	}
	return &def, nil
}

// GetUserTags 获取用户标签（定义与取值合并，无值时回落默认值），按display_order排序
func (s *TagService) GetUserTags(userID uint, category string, page, pageSize int) ([]models.UserTagView, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	base := s.db.Table("user_tag_definitions d").
		Select(`d.tag_id, d.tag_key, d.tag_name, d.tag_category, d.value_type, d.display_order,
			COALESCE(v.tag_value, d.default_value, '') AS tag_value,
			COALESCE(v.source, '') AS source,
			COALESCE(v.confidence_score, 0) AS confidence,
			COALESCE(v.last_updated, d.updated_at) AS last_updated`).
		Joins("LEFT JOIN user_tag_values v ON v.tag_id = d.tag_id AND v.user_id = ?", userID).
		Where("d.is_active = ?", true)
	if category != "" {
		base = base.Where("d.tag_category = ?", category)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, errors.NewPersistenceError("查询用户标签失败", err)
	}

	var views []models.UserTagView
	err := base.Order("d.display_order, d.tag_id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&views).Error
	if err != nil {
		return nil, 0, errors.NewPersistenceError("查询用户标签失败", err)
	}

	return views, total, nil
}

// GetUserTagMap 获取用户有值标签的 key → value 映射（提示词变量、引导判断用）
func (s *TagService) GetUserTagMap(userID uint) (map[string]string, error) {
	views, _, err := s.GetUserTags(userID, "", 1, 500)
	if err != nil {
		return nil, err
	}

	tagMap := make(map[string]string, len(views))
	for _, v := range views {
		if strings.TrimSpace(v.TagValue) != "" {
			tagMap[v.TagKey] = v.TagValue
		}
	}
	return tagMap, nil
}

// SetValue 写入单个标签值。同一事务内读取当前值，
// 仅当值变化时追加历史行；返回是否记录了变更。
func (s *TagService) SetValue(userID uint, tagKey, value, source string, confidence float64, conversationID string) (bool, error) {
	def, err := s.GetDefinitionByKey(tagKey)
	if err != nil {
		return false, err
	}

	if source == "" {
		source = models.TagSourceManual
	}

	changed := false
	var oldValue string

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var current models.TagValue
		findErr := tx.Where("user_id = ? AND tag_id = ?", userID, def.TagID).First(&current).Error
		if findErr != nil && findErr != gorm.ErrRecordNotFound {
			return findErr
		}
		if findErr == nil {
			oldValue = current.TagValue
		}

		if oldValue != value {
			changed = true
			history := models.TagHistory{
				UserID:         userID,
				TagID:          def.TagID,
				OldValue:       oldValue,
				NewValue:       value,
				Source:         source,
				Confidence:     confidence,
				ConversationID: conversationID,
			}
			if err := tx.Create(&history).Error; err != nil {
				return err
			}
		}

		// 值相同也更新last_updated
		row := models.TagValue{
			UserID:      userID,
			TagID:       def.TagID,
			TagValue:    value,
			Source:      source,
			Confidence:  confidence,
			LastUpdated: time.Now(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "tag_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"tag_value", "source", "confidence_score", "last_updated",
			}),
		}).Create(&row).Error
	})
	if err != nil {
		return false, errors.NewPersistenceError(fmt.Sprintf("写入标签 %s 失败", tagKey), err)
	}

	if changed {
		kafka.PublishTagChange(userID, tagKey, oldValue, value, source, confidence, conversationID)
		logger.Debug("标签已更新",
			zap.Uint("user_id", userID),
			zap.String("tag_key", tagKey),
			zap.String("source", source))
	}

	return changed, nil
}

// BatchSet 批量写入标签，返回成功数量。单个标签失败不影响其余标签。
func (s *TagService) BatchSet(userID uint, values map[string]string, source string, conversationID string) (int, error) {
	successCount := 0
	for tagKey, value := range values {
		if _, err := s.SetValue(userID, tagKey, value, source, 0.8, conversationID); err != nil {
			if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrCodeUnknownTag {
				logger.Warn("跳过未定义标签", zap.String("tag_key", tagKey))
				continue
			}
			return successCount, err
		}
		successCount++
	}
	return successCount, nil
}

// DeleteValue 删除用户的某个标签值
func (s *TagService) DeleteValue(userID uint, tagKey string) error {
	def, err := s.GetDefinitionByKey(tagKey)
	if err != nil {
		return err
	}

	result := s.db.Where("user_id = ? AND tag_id = ?", userID, def.TagID).
		Delete(&models.TagValue{})
	if result.Error != nil {
		return errors.NewPersistenceError("删除标签值失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("tag value")
	}
	return nil
}

// ClearUser 清空用户全部标签值
func (s *TagService) ClearUser(userID uint) (int64, error) {
	result := s.db.Where("user_id = ?", userID).Delete(&models.TagValue{})
	if result.Error != nil {
		return 0, errors.NewPersistenceError("清空用户标签失败", result.Error)
	}
	logger.Info("用户标签已清空",
		zap.Uint("user_id", userID),
		zap.Int64("count", result.RowsAffected))
	return result.RowsAffected, nil
}

// GetHistory 获取用户标签变更历史（按时间倒序分页）
func (s *TagService) GetHistory(userID uint, page, pageSize int) ([]models.TagHistory, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	query := s.db.Model(&models.TagHistory{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.NewPersistenceError("查询标签历史失败", err)
	}

	var rows []models.TagHistory
	err := query.Order("updated_at DESC, history_id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, errors.NewPersistenceError("查询标签历史失败", err)
	}

	return rows, total, nil
}

// DeriveDiseaseDuration 根据确诊日期推算病程年数，无法解析时返回空串
func DeriveDiseaseDuration(diagnosisDate string, now time.Time) string {
	raw := strings.TrimSpace(diagnosisDate)
	if raw == "" {
		return ""
	}

	var yearStr string
	if idx := strings.Index(raw, "年"); idx >= 0 {
		yearStr = raw[:idx]
	} else if len(raw) >= 4 {
		yearStr = raw[:4]
	} else {
		yearStr = raw
	}

	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil {
		return ""
	}

	duration := now.Year() - year
	if duration < 0 {
		return ""
	}
	return strconv.Itoa(duration)
}

package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/zhitang/assistant-go/internal/database"
	"github.com/zhitang/assistant-go/internal/errors"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PromptService 提示词注册表：模板管理、用户级覆盖、变量渲染。
// 解析顺序：用户自定义内容 > 用户指定模板 > 启用的默认模板 > 内置兜底。
type PromptService struct {
	db   *gorm.DB
	tags *TagService
}

// NewPromptService 创建提示词服务
func NewPromptService(tags *TagService) *PromptService {
	return &PromptService{db: database.DB, tags: tags}
}

// NewPromptServiceWithDB 使用指定连接创建提示词服务（测试用）
func NewPromptServiceWithDB(db *gorm.DB, tags *TagService) *PromptService {
	return &PromptService{db: db, tags: tags}
}

func validPromptType(t string) bool {
	return t == models.PromptTypeInitial || t == models.PromptTypeNormal || t == models.PromptTypeTagging
}

// ListTemplates 列出模板
func (s *PromptService) ListTemplates(promptType string, page, pageSize int) ([]models.PromptTemplate, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.Model(&models.PromptTemplate{})
	if promptType != "" {
		query = query.Where("prompt_type = ?", promptType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.NewPersistenceError("查询提示词模板失败", err)
	}

	var templates []models.PromptTemplate
	err := query.Order("prompt_type, version DESC, prompt_id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&templates).Error
	if err != nil {
		return nil, 0, errors.NewPersistenceError("查询提示词模板失败", err)
	}
	return templates, total, nil
}

// CreateTemplate 创建模板，同类型版本号自动递增
func (s *PromptService) CreateTemplate(promptType, name, content string) (*models.PromptTemplate, error) {
	if !validPromptType(promptType) {
		return nil, errors.NewValidationError("不支持的提示词类型: " + promptType)
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.NewValidationError("提示词内容不能为空")
	}

	var maxVersion int
	s.db.Model(&models.PromptTemplate{}).
		Where("prompt_type = ?", promptType).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion)

	tpl := &models.PromptTemplate{
		PromptType:    promptType,
		PromptName:    name,
		PromptContent: content,
		Version:       maxVersion + 1,
		IsActive:      true,
	}
	if err := s.db.Create(tpl).Error; err != nil {
		return nil, errors.NewPersistenceError("创建提示词模板失败", err)
	}

	logger.Info("提示词模板已创建",
		zap.String("prompt_type", promptType),
		zap.Uint("prompt_id", tpl.PromptID),
		zap.Int("version", tpl.Version))
	return tpl, nil
}

// UpdateTemplate 更新模板内容或启用状态
func (s *PromptService) UpdateTemplate(promptID uint, updates map[string]interface{}) (*models.PromptTemplate, error) {
	var tpl models.PromptTemplate
	if err := s.db.First(&tpl, promptID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("prompt template")
		}
		return nil, errors.NewPersistenceError("查询提示词模板失败", err)
	}

	if err := s.db.Model(&tpl).Updates(updates).Error; err != nil {
		return nil, errors.NewPersistenceError("更新提示词模板失败", err)
	}
	return &tpl, nil
}

// DeleteTemplate 删除模板
func (s *PromptService) DeleteTemplate(promptID uint) error {
	result := s.db.Delete(&models.PromptTemplate{}, promptID)
	if result.Error != nil {
		return errors.NewPersistenceError("删除提示词模板失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("prompt template")
	}
	return nil
}

// GetUserSettings 获取用户的提示词覆盖设置
func (s *PromptService) GetUserSettings(userID uint) ([]models.UserPromptSetting, error) {
	var settings []models.UserPromptSetting
	if err := s.db.Where("user_id = ?", userID).Find(&settings).Error; err != nil {
		return nil, errors.NewPersistenceError("查询用户提示词设置失败", err)
	}
	return settings, nil
}

// SetUserSetting 设置用户提示词覆盖：指定模板或自定义内容
func (s *PromptService) SetUserSetting(userID uint, promptType string, promptID *uint, customContent string) error {
	if !validPromptType(promptType) {
		return errors.NewValidationError("不支持的提示词类型: " + promptType)
	}

	isCustom := strings.TrimSpace(customContent) != ""
	if !isCustom && promptID == nil {
		return errors.NewValidationError("prompt_id与custom_content至少提供一个")
	}
	if promptID != nil {
		var count int64
		s.db.Model(&models.PromptTemplate{}).Where("prompt_id = ?", *promptID).Count(&count)
		if count == 0 {
			return errors.NewNotFoundError("prompt template")
		}
	}

	setting := models.UserPromptSetting{
		UserID:        userID,
		PromptType:    promptType,
		PromptID:      promptID,
		IsCustom:      isCustom,
		CustomContent: customContent,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "prompt_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"prompt_id", "is_custom", "custom_content", "updated_at",
		}),
	}).Create(&setting).Error
	if err != nil {
		return errors.NewPersistenceError("保存用户提示词设置失败", err)
	}
	return nil
}

// ResetUserSetting 清除用户覆盖，回到默认模板
func (s *PromptService) ResetUserSetting(userID uint, promptType string) error {
	result := s.db.Where("user_id = ? AND prompt_type = ?", userID, promptType).
		Delete(&models.UserPromptSetting{})
	if result.Error != nil {
		return errors.NewPersistenceError("重置用户提示词设置失败", result.Error)
	}
	return nil
}

// ResolveContent 解析某用户某类型最终生效的提示词原文。
// initial类型从数据库取到的内容会追加时间信息块，内置兜底自带。
func (s *PromptService) ResolveContent(userID uint, promptType string, now time.Time) string {
	content := s.resolveStored(userID, promptType)
	if content == "" {
		return builtinPrompt(promptType, now)
	}
	if promptType == models.PromptTypeInitial {
		content = buildTimeContext(now) + content
	}
	return content
}

// resolveStored 数据库内的解析链：自定义内容 > 指定模板 > 启用默认模板
func (s *PromptService) resolveStored(userID uint, promptType string) string {
	var setting models.UserPromptSetting
	err := s.db.Where("user_id = ? AND prompt_type = ?", userID, promptType).
		First(&setting).Error
	if err == nil {
		if setting.IsCustom && strings.TrimSpace(setting.CustomContent) != "" {
			return setting.CustomContent
		}
		if setting.PromptID != nil {
			var tpl models.PromptTemplate
			if err := s.db.First(&tpl, *setting.PromptID).Error; err == nil && tpl.IsActive {
				return tpl.PromptContent
			}
			logger.Warn("用户指定的提示词模板不可用，回落默认模板",
				zap.Uint("user_id", userID),
				zap.Uint("prompt_id", *setting.PromptID))
		}
	}

	var tpl models.PromptTemplate
	err = s.db.Where("prompt_type = ? AND is_active = ?", promptType, true).
		Order("version DESC, prompt_id DESC").
		First(&tpl).Error
	if err == nil {
		return tpl.PromptContent
	}
	return ""
}

// BuildUserVariables 收集提示词变量：用户档案、有值标签、
// 蜜月期询问判断与当前时间。
func (s *PromptService) BuildUserVariables(userID uint, now time.Time) map[string]string {
	variables := make(map[string]string)

	var user models.User
	if err := s.db.First(&user, userID).Error; err == nil {
		if user.Username != "" {
			variables["username"] = user.Username
		}
		if user.Nickname != "" {
			variables["nickname"] = user.Nickname
		}
		if user.PhoneNumber != "" {
			variables["phone_number"] = user.PhoneNumber
		}
		if user.Email != "" {
			variables["email"] = user.Email
		}
	}

	tagMap, err := s.tags.GetUserTagMap(userID)
	if err != nil {
		logger.Warn("获取用户标签变量失败", zap.Uint("user_id", userID), zap.Error(err))
		tagMap = map[string]string{}
	}
	for k, v := range tagMap {
		variables[k] = strings.TrimSpace(v)
	}

	variables["should_ask_honeymoon"] = shouldAskHoneymoon(tagMap["disease_duration_years"])
	variables["current_datetime"] = formatChinaDatetime(now)
	return variables
}

// shouldAskHoneymoon 病程<=2年返回"是"，超过返回"否"，未知或无法解析返回"未知"
func shouldAskHoneymoon(durationYears string) string {
	raw := strings.TrimSpace(durationYears)
	if raw == "" {
		return "未知"
	}
	years, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "未知"
	}
	if years <= 2 {
		return "是"
	}
	return "否"
}

// RenderPrompt 将 {key} 占位符替换为变量值，未提供的占位符保留原样
func RenderPrompt(content string, variables map[string]string) string {
	for key, value := range variables {
		placeholder := "{" + key + "}"
		if strings.Contains(content, placeholder) {
			content = strings.ReplaceAll(content, placeholder, value)
		}
	}
	return content
}

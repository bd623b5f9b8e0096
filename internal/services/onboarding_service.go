package services

import (
	"strings"

	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/models"
	"github.com/zhitang/assistant-go/internal/tags"
	"go.uber.org/zap"
)

// OnboardingStatus 信息收集进度
type OnboardingStatus struct {
	Completed         bool              `json:"is_completed"`
	Required          []string          `json:"required"`
	Collected         map[string]string `json:"collected"`
	Missing           []string          `json:"missing"`
	CurrentPromptType string            `json:"current_prompt_type"`
}

// OnboardingService 初次对话引导门控。
// 必填标签齐全前对话走initial提示词，齐全后自动落
// onboarding_completed标记并切换到normal。
type OnboardingService struct {
	tags *TagService
}

// NewOnboardingService 创建引导服务
func NewOnboardingService(tagService *TagService) *OnboardingService {
	return &OnboardingService{tags: tagService}
}

// onboardingComplete 完成标记为true且必填标签齐全才算收集完成。
// 标签被删除后即使标记仍在也要回到收集模式。
func onboardingComplete(tagMap map[string]string) bool {
	if tagMap[tags.OnboardingCompletedKey] != "true" {
		return false
	}
	for _, key := range tags.RequiredOnboardingKeys {
		if strings.TrimSpace(tagMap[key]) == "" {
			return false
		}
	}
	return true
}

// IsCompleted 信息收集是否已完成
func (s *OnboardingService) IsCompleted(userID uint) bool {
	tagMap, err := s.tags.GetUserTagMap(userID)
	if err != nil {
		logger.Warn("查询引导状态失败，按未完成处理", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	return onboardingComplete(tagMap)
}

// PromptTypeFor 本轮对话应使用的提示词类型
func (s *OnboardingService) PromptTypeFor(userID uint) string {
	if s.IsCompleted(userID) {
		return models.PromptTypeNormal
	}
	return models.PromptTypeInitial
}

// Status 汇总引导进度
func (s *OnboardingService) Status(userID uint) (*OnboardingStatus, error) {
	tagMap, err := s.tags.GetUserTagMap(userID)
	if err != nil {
		return nil, err
	}

	status := &OnboardingStatus{
		Completed: onboardingComplete(tagMap),
		Required:  tags.RequiredOnboardingKeys,
		Collected: make(map[string]string),
		Missing:   make([]string, 0),
	}
	for _, key := range tags.RequiredOnboardingKeys {
		value := strings.TrimSpace(tagMap[key])
		if value != "" {
			status.Collected[key] = value
		} else {
			status.Missing = append(status.Missing, key)
		}
	}

	if status.Completed {
		status.CurrentPromptType = models.PromptTypeNormal
	} else {
		status.CurrentPromptType = models.PromptTypeInitial
	}
	return status, nil
}

// CheckAndComplete 必填标签齐全时落完成标记，返回是否本次发生切换
func (s *OnboardingService) CheckAndComplete(userID uint, conversationID string) bool {
	tagMap, err := s.tags.GetUserTagMap(userID)
	if err != nil {
		logger.Warn("检查引导完成状态失败", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	if tagMap[tags.OnboardingCompletedKey] == "true" {
		return false
	}

	for _, key := range tags.RequiredOnboardingKeys {
		if strings.TrimSpace(tagMap[key]) == "" {
			return false
		}
	}

	changed, err := s.tags.SetValue(userID, tags.OnboardingCompletedKey, "true",
		models.TagSourceSystem, 1.0, conversationID)
	if err != nil {
		logger.Warn("写入引导完成标记失败", zap.Uint("user_id", userID), zap.Error(err))
		return false
	}
	if changed {
		logger.Info("用户信息收集完成，切换到正常对话模式", zap.Uint("user_id", userID))
	}
	return changed
}

// ResetOnboarding 清除完成标记，重新进入信息收集模式
func (s *OnboardingService) ResetOnboarding(userID uint) error {
	_, err := s.tags.SetValue(userID, tags.OnboardingCompletedKey, "false",
		models.TagSourceSystem, 1.0, "")
	return err
}

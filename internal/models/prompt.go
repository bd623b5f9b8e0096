package models

import (
	"time"
)

// 提示词类型
const (
	PromptTypeInitial = "initial"
	PromptTypeNormal  = "normal"
	PromptTypeTagging = "tagging"
)

// PromptTemplate 提示词模板表，每种类型最多一个启用的默认模板
type PromptTemplate struct {
	PromptID      uint      `gorm:"primaryKey;column:prompt_id" json:"prompt_id"`
	PromptType    string    `gorm:"column:prompt_type;size:20;not null;index" json:"prompt_type"`
	PromptName    string    `gorm:"column:prompt_name;size:200;not null" json:"prompt_name"`
	PromptContent string    `gorm:"column:prompt_content;type:text;not null" json:"prompt_content"`
	Version       int       `gorm:"column:version;default:1" json:"version"`
	IsActive      bool      `gorm:"column:is_active;default:true;index" json:"is_active"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (PromptTemplate) TableName() string {
	return "prompt_templates"
}

// UserPromptSetting 用户提示词设置，(user_id, prompt_type) 唯一；
// prompt_id 与 custom_content 二选一
type UserPromptSetting struct {
	SettingID     uint      `gorm:"primaryKey;column:setting_id" json:"setting_id"`
	UserID        uint      `gorm:"column:user_id;not null;uniqueIndex:uq_user_prompt" json:"user_id"`
	PromptType    string    `gorm:"column:prompt_type;size:20;not null;uniqueIndex:uq_user_prompt" json:"prompt_type"`
	PromptID      *uint     `gorm:"column:prompt_id" json:"prompt_id"`
	IsCustom      bool      `gorm:"column:is_custom;default:false" json:"is_custom"`
	CustomContent string    `gorm:"column:custom_content;type:text" json:"custom_content"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (UserPromptSetting) TableName() string {
	return "user_prompt_settings"
}

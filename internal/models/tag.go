package models

import (
	"time"
)

// TagDefinition 标签定义表（共享、热路径只读）
type TagDefinition struct {
	TagID        uint      `gorm:"primaryKey;column:tag_id" json:"tag_id"`
	TagKey       string    `gorm:"column:tag_key;size:100;not null;uniqueIndex" json:"tag_key"`
	TagName      string    `gorm:"column:tag_name;size:200;not null" json:"tag_name"`
	TagCategory  string    `gorm:"column:tag_category;size:50;not null;index" json:"tag_category"`
	ValueType    string    `gorm:"column:value_type;size:20;not null;default:string" json:"value_type"`
	IsCozeSynced bool      `gorm:"column:is_coze_synced;default:false" json:"is_coze_synced"`
	DefaultValue string    `gorm:"column:default_value;size:500" json:"default_value"`
	DisplayOrder int       `gorm:"column:display_order;default:0" json:"display_order"`
	IsActive     bool      `gorm:"column:is_active;default:true;index" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (TagDefinition) TableName() string {
	return "user_tag_definitions"
}

// 标签分类
const (
	TagCategoryBasic    = "basic"
	TagCategoryHealth   = "health"
	TagCategoryBehavior = "behavior"
	TagCategoryStats    = "stats"
)

// 标签值来源
const (
	TagSourceManual     = "manual"
	TagSourceOnboarding = "onboarding"
	TagSourceAIExtract  = "ai_extract"
	TagSourceSystem     = "system"
)

// TagValue 用户标签值表，(user_id, tag_id) 唯一
type TagValue struct {
	ValueID     uint      `gorm:"primaryKey;column:value_id" json:"value_id"`
	UserID      uint      `gorm:"column:user_id;not null;uniqueIndex:uq_user_tag" json:"user_id"`
	TagID       uint      `gorm:"column:tag_id;not null;uniqueIndex:uq_user_tag" json:"tag_id"`
	TagValue    string    `gorm:"column:tag_value;type:text" json:"tag_value"`
	Source      string    `gorm:"column:source;size:20;not null;default:manual" json:"source"`
	Confidence  float64   `gorm:"column:confidence_score;default:1" json:"confidence_score"`
	LastUpdated time.Time `gorm:"column:last_updated;autoUpdateTime" json:"last_updated"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`

	Definition TagDefinition `gorm:"foreignKey:TagID;references:TagID" json:"-"`
}

func (TagValue) TableName() string {
	return "user_tag_values"
}

// TagHistory 标签变更历史，仅在值发生变化时追加
type TagHistory struct {
	HistoryID      uint      `gorm:"primaryKey;column:history_id" json:"history_id"`
	UserID         uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	TagID          uint      `gorm:"column:tag_id;not null;index" json:"tag_id"`
	OldValue       string    `gorm:"column:old_value;type:text" json:"old_value"`
	NewValue       string    `gorm:"column:new_value;type:text" json:"new_value"`
	Source         string    `gorm:"column:source;size:20" json:"source"`
	Confidence     float64   `gorm:"column:confidence_score" json:"confidence_score"`
	ConversationID string    `gorm:"column:conversation_id;size:255" json:"conversation_id"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoCreateTime" json:"updated_at"`
}

func (TagHistory) TableName() string {
	return "user_tag_history"
}

// UserTagView 定义与值的合并视图（get_user_tags 返回行）
type UserTagView struct {
	TagID        uint      `json:"tag_id"`
	TagKey       string    `json:"tag_key"`
	TagName      string    `json:"tag_name"`
	TagCategory  string    `json:"tag_category"`
	ValueType    string    `json:"value_type"`
	TagValue     string    `json:"tag_value"`
	Source       string    `json:"source"`
	Confidence   float64   `json:"confidence_score"`
	DisplayOrder int       `json:"display_order"`
	LastUpdated  time.Time `json:"last_updated"`
}

package models

import (
	"time"
)

// FAQ FAQ主表，question 唯一，status=0 的行不参与检索
type FAQ struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	Question    string    `gorm:"column:question;size:500;not null;uniqueIndex" json:"question"`
	Answer      string    `gorm:"column:answer;type:text;not null" json:"answer"`
	Category    string    `gorm:"column:category;size:100;index" json:"category"`
	Source      string    `gorm:"column:source;size:200" json:"source"`
	Status      int       `gorm:"column:status;default:1;index" json:"status"`
	SortOrder   int       `gorm:"column:sort_order;default:0" json:"sort_order"`
	IsManual    bool      `gorm:"column:is_manual;default:true" json:"is_manual"`
	Description string    `gorm:"column:description;size:500" json:"description"`
	ViewCount   int       `gorm:"column:view_count;default:0" json:"view_count"`
	LikeCount   int       `gorm:"column:like_count;default:0" json:"like_count"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`

	Keywords []FAQKeyword `gorm:"foreignKey:FAQID;constraint:OnDelete:CASCADE" json:"keywords,omitempty"`
}

func (FAQ) TableName() string {
	return "faq_list"
}

// 关键词类型与默认权重
const (
	KeywordTypeManual = "manual"
	KeywordTypeAuto   = "auto"

	KeywordWeightManual = 1.0
	KeywordWeightAuto   = 0.5
)

// FAQKeyword FAQ关键词表，(faq_id, keyword) 唯一，随FAQ级联删除
type FAQKeyword struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	FAQID       uint      `gorm:"column:faq_id;not null;uniqueIndex:uq_faq_keyword" json:"faq_id"`
	Keyword     string    `gorm:"column:keyword;size:100;not null;uniqueIndex:uq_faq_keyword" json:"keyword"`
	KeywordType string    `gorm:"column:keyword_type;size:20;not null;default:manual" json:"keyword_type"`
	Weight      float64   `gorm:"column:weight;not null;default:1" json:"weight"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (FAQKeyword) TableName() string {
	return "faq_list_keys"
}

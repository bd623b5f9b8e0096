package models

import (
	"time"
)

// KnowledgeFile 知识库文件本地记录；远端文档列表用它补全下载链接
type KnowledgeFile struct {
	ID         uint      `gorm:"primaryKey;column:id" json:"id"`
	DocumentID string    `gorm:"column:document_id;size:100;not null;uniqueIndex" json:"document_id"`
	FileName   string    `gorm:"column:file_name;size:255;not null" json:"file_name"`
	FilePath   string    `gorm:"column:file_path;size:500;not null" json:"file_path"`
	FileURL    string    `gorm:"column:file_url;size:500;not null" json:"file_url"`
	FileType   string    `gorm:"column:file_type;size:50;index" json:"file_type"`
	FileSize   int64     `gorm:"column:file_size;default:0" json:"file_size"`
	DatasetID  string    `gorm:"column:dataset_id;size:100" json:"dataset_id"`
	UserID     uint      `gorm:"column:user_id;index" json:"user_id"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (KnowledgeFile) TableName() string {
	return "knowledge_file_storage"
}

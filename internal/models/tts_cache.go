package models

import (
	"time"
)

// TTSCacheEntry 语音合成缓存元数据；磁盘文件名为 (文本, 音色, 语速) 的确定性哈希
type TTSCacheEntry struct {
	CacheID      uint      `gorm:"primaryKey;column:cache_id" json:"cache_id"`
	TextHash     string    `gorm:"column:text_hash;size:64;not null;uniqueIndex" json:"text_hash"`
	VoiceID      string    `gorm:"column:voice_id;size:50;not null" json:"voice_id"`
	Speed        float64   `gorm:"column:speed;default:1" json:"speed"`
	SampleRate   int       `gorm:"column:sample_rate;default:24000" json:"sample_rate"`
	Codec        string    `gorm:"column:codec;size:10;default:wav" json:"codec"`
	FilePath     string    `gorm:"column:file_path;size:500;not null" json:"file_path"`
	FileSize     int64     `gorm:"column:file_size;default:0" json:"file_size"`
	LastAccessed time.Time `gorm:"column:last_accessed" json:"last_accessed"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (TTSCacheEntry) TableName() string {
	return "tts_cache_entries"
}

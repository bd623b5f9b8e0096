package services

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/database"
	"github.com/zhitang/assistant-go/internal/errors"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/metrics"
	"github.com/zhitang/assistant-go/internal/models"
	"github.com/zhitang/assistant-go/internal/tts"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TTSEvent 流式合成事件
type TTSEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// TTSBatchResult 批量合成单条结果
type TTSBatchResult struct {
	Text        string `json:"text"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// TTSCacheStats 缓存统计
type TTSCacheStats struct {
	TotalFiles  int     `json:"total_files"`
	TotalSizeMB float64 `json:"total_size_mb"`
	CacheDir    string  `json:"cache_dir"`
	DBEntries   int64   `json:"db_entries"`
	DBActive    int64   `json:"db_active"`
}

// TTSService 语音合成服务：逐句切分、文件缓存与流式下发
type TTSService struct {
	db     *gorm.DB
	client *tts.Client
	cfg    config.TTSConfig
}

// NewTTSService 创建TTS服务并准备缓存目录
func NewTTSService(cfg config.TTSConfig) *TTSService {
	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			logger.Warn("创建TTS缓存目录失败", zap.String("dir", cfg.CacheDir), zap.Error(err))
		}
	}
	return &TTSService{
		db:     database.DB,
		client: tts.NewClient(cfg),
		cfg:    cfg,
	}
}

// cacheKey 缓存键使用实际下发厂商的参数，保证同音色同语速复用
func (s *TTSService) cacheKey(text, voiceID string, speed float64) string {
	voiceType := s.client.ResolveVoice(voiceID)
	ttsSpeed := tts.MapSpeed(speed)
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%d", text, voiceType, ttsSpeed)))
	return hex.EncodeToString(sum[:])
}

func (s *TTSService) cachePath(hash string) string {
	return filepath.Join(s.cfg.CacheDir, hash+".wav")
}

// Synthesize 合成一句语音（WAV或MP3字节）。命中缓存时直接读盘。
func (s *TTSService) Synthesize(ctx context.Context, text, voiceID string, speed float64, useCache bool) ([]byte, error) {
	hash := s.cacheKey(text, voiceID, speed)
	path := s.cachePath(hash)

	if useCache {
		if data := s.readCache(hash, path); data != nil {
			metrics.TTSCacheHitsTotal.WithLabelValues("hit").Inc()
			return data, nil
		}
		metrics.TTSCacheHitsTotal.WithLabelValues("miss").Inc()
	}

	voiceType := s.client.ResolveVoice(voiceID)
	raw, err := s.client.Synthesize(ctx, text, voiceType, tts.MapSpeed(speed))
	if err != nil {
		return nil, errors.NewUpstreamError("语音合成失败", err)
	}

	audio := raw
	if s.cfg.Codec == "pcm" {
		audio = tts.PCMToWAV(raw, s.cfg.SampleRate, 1, 16)
	}

	if useCache {
		s.writeCache(hash, path, voiceID, speed, audio)
	}
	return audio, nil
}

// SynthesizeBase64 合成并返回Base64编码
func (s *TTSService) SynthesizeBase64(ctx context.Context, text, voiceID string, speed float64, useCache bool) (string, error) {
	audio, err := s.Synthesize(ctx, text, voiceID, speed, useCache)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(audio), nil
}

// readCache 共享锁读取缓存并校验音频头，损坏文件删除并标记记录失效
func (s *TTSService) readCache(hash, path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH); err == nil {
		defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	if tts.DetectAudioFormat(data) == "" {
		logger.Warn("缓存音频格式损坏，删除重新合成",
			zap.String("path", path),
			zap.Int("size", len(data)))
		os.Remove(path)
		s.db.Model(&models.TTSCacheEntry{}).
			Where("text_hash = ?", hash).
			Update("is_active", false)
		return nil
	}

	s.db.Model(&models.TTSCacheEntry{}).
		Where("text_hash = ?", hash).
		Updates(map[string]interface{}{"last_accessed": time.Now(), "is_active": true})
	return data
}

// writeCache 独占锁写入缓存文件并落元数据
func (s *TTSService) writeCache(hash, path, voiceID string, speed float64, audio []byte) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("创建缓存目录失败", zap.Error(err))
		return
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		logger.Warn("打开缓存文件失败", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err == nil {
		defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}

	if _, err := f.Write(audio); err != nil {
		logger.Warn("写入缓存文件失败", zap.String("path", path), zap.Error(err))
		return
	}
	f.Sync()

	entry := models.TTSCacheEntry{
		TextHash:     hash,
		VoiceID:      voiceID,
		Speed:        speed,
		SampleRate:   s.cfg.SampleRate,
		Codec:        s.cfg.Codec,
		FilePath:     path,
		FileSize:     int64(len(audio)),
		LastAccessed: time.Now(),
		IsActive:     true,
	}
	if err := s.db.Where("text_hash = ?", hash).
		Assign(entry).
		FirstOrCreate(&models.TTSCacheEntry{}).Error; err != nil {
		logger.Debug("写入缓存元数据失败", zap.Error(err))
	}
}

// StreamSynthesize 切句后逐句合成，通过事件通道下发。
// 单句失败不中断后续句子。
func (s *TTSService) StreamSynthesize(ctx context.Context, text, voiceID string, speed float64, useCache bool) <-chan TTSEvent {
	out := make(chan TTSEvent, 16)

	go func() {
		defer close(out)

		sentences := tts.SplitSentences(text)
		total := len(sentences)
		logger.Info("流式TTS开始",
			zap.Int("text_len", len([]rune(text))),
			zap.Int("sentences", total))

		successCount := 0
		for i, sentence := range sentences {
			if ctx.Err() != nil {
				return
			}

			index := i + 1
			audioBase64, err := s.SynthesizeBase64(ctx, sentence, voiceID, speed, useCache)
			if err != nil {
				logger.Warn("句子合成失败",
					zap.Int("index", index),
					zap.Error(err))
				out <- TTSEvent{Event: "audio_error", Data: map[string]interface{}{
					"sentence": sentence,
					"index":    index,
					"total":    total,
					"message":  err.Error(),
				}}
				continue
			}

			successCount++
			out <- TTSEvent{Event: "audio", Data: map[string]interface{}{
				"audio":    audioBase64,
				"sentence": sentence,
				"index":    index,
				"total":    total,
			}}
		}

		out <- TTSEvent{Event: "completed", Data: map[string]interface{}{
			"message": fmt.Sprintf("TTS转换完成，共处理 %d 句，成功 %d 句", total, successCount),
			"total":   total,
			"success": successCount,
		}}
	}()

	return out
}

// BatchSynthesize 批量合成，每条独立成功或失败
func (s *TTSService) BatchSynthesize(ctx context.Context, texts []string, voiceID string, speed float64) []TTSBatchResult {
	results := make([]TTSBatchResult, 0, len(texts))
	for _, text := range texts {
		audioBase64, err := s.SynthesizeBase64(ctx, text, voiceID, speed, true)
		if err != nil {
			results = append(results, TTSBatchResult{Text: text, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, TTSBatchResult{Text: text, AudioBase64: audioBase64, Success: true})
	}
	return results
}

// CacheStats 磁盘与数据库两侧的缓存统计
func (s *TTSService) CacheStats() (*TTSCacheStats, error) {
	stats := &TTSCacheStats{CacheDir: s.cfg.CacheDir}

	entries, err := os.ReadDir(s.cfg.CacheDir)
	if err == nil {
		var totalSize int64
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			stats.TotalFiles++
			if info, err := e.Info(); err == nil {
				totalSize += info.Size()
			}
		}
		stats.TotalSizeMB = float64(totalSize) / (1024 * 1024)
	}

	s.db.Model(&models.TTSCacheEntry{}).Count(&stats.DBEntries)
	s.db.Model(&models.TTSCacheEntry{}).Where("is_active = ?", true).Count(&stats.DBActive)
	return stats, nil
}

// ListCacheEntries 分页列出缓存元数据
func (s *TTSService) ListCacheEntries(page, pageSize int) ([]models.TTSCacheEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	var total int64
	if err := s.db.Model(&models.TTSCacheEntry{}).Count(&total).Error; err != nil {
		return nil, 0, errors.NewPersistenceError("查询TTS缓存失败", err)
	}

	var entries []models.TTSCacheEntry
	err := s.db.Order("last_accessed DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, errors.NewPersistenceError("查询TTS缓存失败", err)
	}
	return entries, total, nil
}

// ClearCache 清理N天前的缓存文件及其元数据，返回清理数量
func (s *TTSService) ClearCache(olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		olderThanDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	entries, err := os.ReadDir(s.cfg.CacheDir)
	if err != nil {
		return 0, fmt.Errorf("读取缓存目录失败: %w", err)
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.CacheDir, e.Name())
		if err := os.Remove(path); err == nil {
			count++
			s.db.Where("file_path = ?", path).Delete(&models.TTSCacheEntry{})
		}
	}

	logger.Info("TTS缓存清理完成", zap.Int("removed", count), zap.Int("older_than_days", olderThanDays))
	return count, nil
}

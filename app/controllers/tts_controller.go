package controllers

import (
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/tts"
	"go.uber.org/zap"
)

// TTSController 语音合成接口
type TTSController struct {
	BaseController
}

// SynthesizeRequest 合成请求
type SynthesizeRequest struct {
	Text     string  `json:"text" validate:"required"`
	VoiceID  string  `json:"voice_id"`
	Speed    float64 `json:"speed"`
	UseCache *bool   `json:"use_cache"`
}

func (r *SynthesizeRequest) normalize() {
	if r.Speed <= 0 {
		r.Speed = 1.0
	}
}

func (r *SynthesizeRequest) cacheEnabled() bool {
	return r.UseCache == nil || *r.UseCache
}

// Synthesize 一次性合成 POST /api/tts/synthesize
func (c *TTSController) Synthesize() {
	var req SynthesizeRequest
	if !c.parseBody(&req) {
		return
	}
	req.normalize()

	audioBase64, err := ttsService().SynthesizeBase64(c.Ctx.Request.Context(), req.Text, req.VoiceID, req.Speed, req.cacheEnabled())
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{
		"audio":  audioBase64,
		"format": "wav",
	})
}

// Stream 逐句流式合成 POST /api/tts/stream
func (c *TTSController) Stream() {
	var req SynthesizeRequest
	if !c.parseBody(&req) {
		return
	}
	req.normalize()

	if !tts.HasValidText(req.Text) {
		c.BadRequest("文本不含可合成内容")
		return
	}

	writer := newSSEWriter(c.Ctx.ResponseWriter)
	events := ttsService().StreamSynthesize(c.Ctx.Request.Context(), req.Text, req.VoiceID, req.Speed, req.cacheEnabled())
	for evt := range events {
		if err := writer.send(evt.Event, evt.Data); err != nil {
			logger.Info("TTS流客户端断开", zap.Error(err))
			for range events {
			}
			break
		}
	}
}

// BatchRequest 批量合成请求
type TTSBatchRequest struct {
	Texts   []string `json:"texts" validate:"required,min=1"`
	VoiceID string   `json:"voice_id"`
	Speed   float64  `json:"speed"`
}

// Batch 批量合成 POST /api/tts/batch
func (c *TTSController) Batch() {
	var req TTSBatchRequest
	if !c.parseBody(&req) {
		return
	}
	if req.Speed <= 0 {
		req.Speed = 1.0
	}

	results := ttsService().BatchSynthesize(c.Ctx.Request.Context(), req.Texts, req.VoiceID, req.Speed)
	success := 0
	for _, r := range results {
		if r.Success {
			success++
		}
	}
	c.OK(map[string]interface{}{
		"results": results,
		"total":   len(results),
		"success": success,
	})
}

// CacheStats 缓存统计 GET /api/tts/cache/stats
func (c *TTSController) CacheStats() {
	stats, err := ttsService().CacheStats()
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(stats)
}

// CacheList 缓存条目列表 GET /api/tts/cache/list
func (c *TTSController) CacheList() {
	page := c.queryInt("page", 1)
	pageSize := c.queryInt("page_size", 20)

	entries, total, err := ttsService().ListCacheEntries(page, pageSize)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{
		"entries":   entries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CacheClear 清理过期缓存 POST /api/tts/cache/clear
func (c *TTSController) CacheClear() {
	var req struct {
		OlderThanDays int `json:"older_than_days"`
	}
	if len(c.Ctx.Input.RequestBody) > 0 && !c.parseBody(&req) {
		return
	}

	removed, err := ttsService().ClearCache(req.OlderThanDays)
	if err != nil {
		c.Fail(err)
		return
	}
	c.OK(map[string]interface{}{"removed": removed})
}

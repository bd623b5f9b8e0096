package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/zhitang/assistant-go/internal/config"
)

// Client 语音合成厂商客户端（火山引擎openspeech协议）
type Client struct {
	cfg  config.TTSConfig
	http *http.Client
}

// NewClient 创建TTS客户端
func NewClient(cfg config.TTSConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// ResolveVoice 6位纯数字的voice_id直接透传，其余使用默认音色
func (c *Client) ResolveVoice(voiceID string) string {
	if len(voiceID) == 6 && isAllDigits(voiceID) {
		return voiceID
	}
	if c.cfg.DefaultVoice != "" {
		return c.cfg.DefaultVoice
	}
	return "7426720361753903141"
}

// MapSpeed 将[0.5,2.0]的倍速线性映射到厂商的[-2,6]档位
func MapSpeed(speed float64) int {
	if speed <= 0.5 {
		return -2
	}
	if speed >= 2.0 {
		return 6
	}
	mapped := int((speed-0.5)/1.5*8 - 2)
	if mapped < -2 {
		mapped = -2
	}
	if mapped > 6 {
		mapped = 6
	}
	return mapped
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Synthesize 合成一句语音，返回厂商给出的原始音频数据。
// codec=pcm时调用方需自行封装WAV头。
func (c *Client) Synthesize(ctx context.Context, text, voiceType string, speed int) ([]byte, error) {
	if c.cfg.AppID == "" || c.cfg.AccessToken == "" {
		return nil, fmt.Errorf("TTS服务未配置")
	}

	payload := map[string]interface{}{
		"app": map[string]interface{}{
			"appid":   c.cfg.AppID,
			"token":   c.cfg.AccessToken,
			"cluster": c.cfg.Cluster,
		},
		"user": map[string]interface{}{
			"uid": "assistant-core",
		},
		"audio": map[string]interface{}{
			"voice_type": voiceType,
			"encoding":   c.cfg.Codec,
			"rate":       c.cfg.SampleRate,
			"speed":      speed,
			"volume":     0,
		},
		"request": map[string]interface{}{
			"reqid":     uuid.New().String(),
			"text":      text,
			"operation": "query",
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("构建TTS请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("构建TTS请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer;"+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取TTS响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TTS返回 %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var result struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    string `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析TTS响应失败: %w", err)
	}
	if result.Code != 3000 || result.Data == "" {
		return nil, fmt.Errorf("TTS合成失败: code=%d message=%s", result.Code, result.Message)
	}

	audio, err := base64.StdEncoding.DecodeString(result.Data)
	if err != nil {
		return nil, fmt.Errorf("解码TTS音频失败: %w", err)
	}
	return audio, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

package llm

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/metrics"
	"go.uber.org/zap"
)

// Message 一条对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamDelta 流式增量。Done 为 true 时表示上游已收尾；
// Err 非空时流异常结束，已收到的增量仍然有效。
type StreamDelta struct {
	Content string
	Done    bool
	Err     error
}

// Client DeepSeek聊天补全客户端（OpenAI兼容协议）。
// 无共享可变状态，可被多个goroutine并发使用。
type Client struct {
	cfg      config.LLMConfig
	api      *openai.Client
	insecure *openai.Client
}

// NewClient 创建LLM客户端
func NewClient(cfg config.LLMConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	c := &Client{
		cfg: cfg,
		api: openai.NewClientWithConfig(apiCfg),
	}

	if cfg.AllowInsecureFallback {
		insecureCfg := openai.DefaultConfig(cfg.APIKey)
		insecureCfg.BaseURL = cfg.BaseURL
		insecureCfg.HTTPClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
		c.insecure = openai.NewClientWithConfig(insecureCfg)
	}

	return c
}

// Chat 非流式聊天补全，内部带重试
func (c *Client) Chat(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error) {
	req := c.buildRequest(messages, temperature, maxTokens)

	start := time.Now()
	defer func() {
		metrics.LLMRequestDuration.WithLabelValues("complete").Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.LLMRetriesTotal.Inc()
			if err := sleepBackoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("上游返回空choices")
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err

		if isTLSError(err) && c.insecure != nil {
			logger.Warn("TLS证书校验失败，降级为跳过校验重试", zap.Error(err))
			resp, err = c.insecure.CreateChatCompletion(ctx, req)
			if err == nil && len(resp.Choices) > 0 {
				return resp.Choices[0].Message.Content, nil
			}
			lastErr = err
		}

		if !isTransient(lastErr) {
			break
		}
		logger.Warn("大模型调用失败，准备重试",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}

	return "", fmt.Errorf("大模型调用失败: %w", lastErr)
}

// ChatStream 流式聊天补全。返回的通道在流结束或出错后关闭；
// 取消ctx会中止上游读取并释放连接。
func (c *Client) ChatStream(ctx context.Context, messages []Message, temperature float32, maxTokens int) (<-chan StreamDelta, error) {
	req := c.buildRequest(messages, temperature, maxTokens)
	req.Stream = true

	stream, err := c.openStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("建立流式连接失败: %w", err)
	}

	out := make(chan StreamDelta, 100)
	go func() {
		defer close(out)
		defer stream.Close()

		start := time.Now()
		defer func() {
			metrics.LLMRequestDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())
		}()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				out <- StreamDelta{Done: true}
				return
			}
			if err != nil {
				if ctx.Err() != nil {
					// 调用方取消，静默收尾
					return
				}
				out <- StreamDelta{Err: err}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- StreamDelta{Content: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// openStream 带重试地建立流式连接
func (c *Client) openStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.LLMRetriesTotal.Inc()
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		stream, err := c.api.CreateChatCompletionStream(ctx, req)
		if err == nil {
			return stream, nil
		}
		lastErr = err

		if isTLSError(err) && c.insecure != nil {
			logger.Warn("TLS证书校验失败，降级为跳过校验重试", zap.Error(err))
			stream, err = c.insecure.CreateChatCompletionStream(ctx, req)
			if err == nil {
				return stream, nil
			}
			lastErr = err
		}

		if !isTransient(lastErr) {
			break
		}
		logger.Warn("建立流式连接失败，准备重试",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}
	return nil, lastErr
}

func (c *Client) buildRequest(messages []Message, temperature float32, maxTokens int) openai.ChatCompletionRequest {
	if temperature <= 0 {
		temperature = float32(c.cfg.Temperature)
	}
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// isTransient 判断错误是否值得重试（429 或 5xx）
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	// 网络层错误（连接重置、超时）也按瞬时处理
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "EOF")
}

func isTLSError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "x509") || strings.Contains(msg, "certificate")
}

func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := time.Duration(1<<uint(attempt-1)) * time.Second
	select {
	case <-time.After(backoff):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

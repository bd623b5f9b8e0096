package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 对话与上游调用指标
var (
	ChatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assistant",
		Subsystem: "chat",
		Name:      "turns_total",
		Help:      "对话轮次总数（按提示词类型）",
	}, []string{"prompt_type"})

	SSEEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assistant",
		Subsystem: "chat",
		Name:      "sse_events_total",
		Help:      "发送给客户端的SSE事件总数",
	}, []string{"event"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "assistant",
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "大模型调用耗时",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode"})

	LLMRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "assistant",
		Subsystem: "llm",
		Name:      "retries_total",
		Help:      "大模型调用重试次数",
	})

	FAQSearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "assistant",
		Subsystem: "faq",
		Name:      "search_duration_seconds",
		Help:      "FAQ关键词检索耗时",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
	})

	TTSCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assistant",
		Subsystem: "tts",
		Name:      "cache_total",
		Help:      "TTS缓存命中/未命中",
	}, []string{"result"})

	TagExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assistant",
		Subsystem: "tags",
		Name:      "extractions_total",
		Help:      "标签提取次数（按结果）",
	}, []string{"result"})
)

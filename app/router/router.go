// Package router 注册全部HTTP路由。
package router

import (
	"github.com/zhitang/assistant-go/app/controllers"
	"github.com/zhitang/assistant-go/app/middleware"
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Init 注册全部路由，需在配置加载之后调用
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Handler("/metrics", promhttp.Handler())

	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	// 对话
	chatController := &controllers.ChatController{}
	web.Router("/api/chat/stream", chatController, "post:Stream")
	web.Router("/api/chat/stream_with_tts", chatController, "post:StreamWithTTS")
	web.Router("/api/chat/history", chatController, "get:History")
	web.Router("/api/chat/history/export", chatController, "post:ExportHistory")
	// 注意：具体路由必须在参数路由之前注册
	web.Router("/api/chat/sessions/latest", chatController, "get:LatestSession")
	web.Router("/api/chat/sessions", chatController, "get:Sessions")
	web.Router("/api/chat/sessions/:conversation_id", chatController, "delete:DeleteSession")
	web.Router("/api/chat/onboarding/status", chatController, "get:OnboardingStatus")
	web.Router("/api/chat/onboarding/reset", chatController, "post:OnboardingReset")

	// 用户标签
	tagController := &controllers.TagController{}
	web.Router("/api/tags", tagController, "get:Get;post:Post;delete:Delete")
	web.Router("/api/tags/batch", tagController, "post:BatchSet;delete:BatchDelete")
	web.Router("/api/tags/clear", tagController, "post:Clear")
	web.Router("/api/tags/definitions", tagController, "get:Definitions")
	web.Router("/api/tags/history", tagController, "get:History")
	web.Router("/api/tags/mappings", tagController, "get:Mappings")
	web.Router("/api/tags/mappings/export", tagController, "get:MappingsExport")

	// FAQ
	faqController := &controllers.FAQController{}
	web.Router("/api/faq", faqController, "post:Post;put:Put")
	web.Router("/api/faq/list", faqController, "get:List")
	web.Router("/api/faq/batch", faqController, "post:Batch")
	web.Router("/api/faq/keywords/suggest", faqController, "post:SuggestKeywords")
	web.Router("/api/faq/import", faqController, "post:Import")
	web.Router("/api/faq/import-template", faqController, "get:ImportTemplate")
	web.Router("/api/faq/export", faqController, "get:Export")
	web.Router("/api/faq/stats", faqController, "get:Stats")
	web.Router("/api/faq/:id", faqController, "get:Get;put:Put;delete:Delete")
	web.Router("/api/faq/:id/like", faqController, "post:Like")

	// 知识检索
	knowledgeController := &controllers.KnowledgeController{}
	web.Router("/api/knowledge-qa/search", knowledgeController, "post:Search")
	web.Router("/api/knowledge-qa/answer", knowledgeController, "post:Answer")
	web.Router("/api/knowledge-qa/documents", knowledgeController, "get:ListDocuments;post:Upload")
	web.Router("/api/knowledge-qa/documents/:doc_id", knowledgeController, "delete:DeleteDocument")

	// 语音合成
	ttsController := &controllers.TTSController{}
	web.Router("/api/tts/synthesize", ttsController, "post:Synthesize")
	web.Router("/api/tts/stream", ttsController, "post:Stream")
	web.Router("/api/tts/batch", ttsController, "post:Batch")
	web.Router("/api/tts/cache/stats", ttsController, "get:CacheStats")
	web.Router("/api/tts/cache/list", ttsController, "get:CacheList")
	web.Router("/api/tts/cache/clear", ttsController, "post:CacheClear")

	// 提示词
	promptController := &controllers.PromptController{}
	web.Router("/api/prompts", promptController, "get:List;post:Post")
	web.Router("/api/prompts/user", promptController, "get:UserSettings;post:SetUserSetting;delete:ResetUserSetting")
	web.Router("/api/prompts/resolve", promptController, "get:Resolve")
	web.Router("/api/prompts/:id", promptController, "put:Put;delete:Delete")
}

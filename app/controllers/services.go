package controllers

import (
	"github.com/zhitang/assistant-go/internal/di"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/services"
	"go.uber.org/zap"
)

// beego每次请求通过反射新建控制器实例，构造期注入的字段不会保留，
// 控制器统一从DI容器按需取服务。

func chatService() *services.ChatService {
	var s *services.ChatService
	mustInvoke(func(cs *services.ChatService) { s = cs })
	return s
}

func tagService() *services.TagService {
	var s *services.TagService
	mustInvoke(func(ts *services.TagService) { s = ts })
	return s
}

func faqService() *services.FAQService {
	var s *services.FAQService
	mustInvoke(func(fs *services.FAQService) { s = fs })
	return s
}

func knowledgeService() *services.KnowledgeService {
	var s *services.KnowledgeService
	mustInvoke(func(ks *services.KnowledgeService) { s = ks })
	return s
}

func promptService() *services.PromptService {
	var s *services.PromptService
	mustInvoke(func(ps *services.PromptService) { s = ps })
	return s
}

func onboardingService() *services.OnboardingService {
	var s *services.OnboardingService
	mustInvoke(func(os *services.OnboardingService) { s = os })
	return s
}

func historyService() *services.HistoryService {
	var s *services.HistoryService
	mustInvoke(func(hs *services.HistoryService) { s = hs })
	return s
}

func ttsService() *services.TTSService {
	var s *services.TTSService
	mustInvoke(func(ts *services.TTSService) { s = ts })
	return s
}

// mustInvoke 容器解析失败属于装配错误，直接panic交由框架recover兜底
func mustInvoke(fn interface{}) {
	if err := di.Invoke(fn); err != nil {
		logger.Error("依赖注入失败", zap.Error(err))
		panic(err)
	}
}

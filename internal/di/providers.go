package di

import (
	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/llm"
	"github.com/zhitang/assistant-go/internal/services"
	"go.uber.org/dig"
)

// RegisterProviders 注册服务依赖图，需在配置与数据库初始化之后调用
func RegisterProviders(container *dig.Container) error {
	providers := []interface{}{
		func() *llm.Client {
			return llm.NewClient(config.AppConfig.LLM)
		},
		services.NewTagService,
		func(llmClient *llm.Client) *services.FAQService {
			return services.NewFAQService(llmClient)
		},
		func() *services.KnowledgeService {
			return services.NewKnowledgeService(config.AppConfig.Dify)
		},
		services.NewPromptService,
		services.NewOnboardingService,
		services.NewTagExtractor,
		services.NewHistoryService,
		func() *services.TTSService {
			return services.NewTTSService(config.AppConfig.TTS)
		},
		services.NewChatService,
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhitang/assistant-go/internal/di"
	"github.com/zhitang/assistant-go/internal/services"
)

func TestMustInvokePanicsOnUnresolvedService(t *testing.T) {
	prev := di.Container
	defer func() { di.Container = prev }()
	di.InitContainer()

	// 容器缺失装配时必须在取服务处失败，而不是带着nil继续
	assert.Panics(t, func() { chatService() })
}

func TestServiceGetterResolvesFromContainer(t *testing.T) {
	prev := di.Container
	defer func() { di.Container = prev }()
	di.InitContainer()
	require.NoError(t, di.Provide(func() *services.TagService {
		return services.NewTagServiceWithDB(nil)
	}))

	assert.NotNil(t, tagService())
}

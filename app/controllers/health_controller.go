package controllers

import (
	"time"

	"github.com/zhitang/assistant-go/internal/database"
)

// RootController 根路径
type RootController struct {
	BaseController
}

// Index GET /
func (c *RootController) Index() {
	c.OK(map[string]interface{}{
		"service": "assistant-go",
		"status":  "running",
	})
}

// HealthController 健康检查
type HealthController struct {
	BaseController
}

// Health GET /health
func (c *HealthController) Health() {
	components := map[string]string{}

	dbStatus := "ok"
	if database.DB == nil {
		dbStatus = "down"
	} else if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
	}
	components["database"] = dbStatus

	redisStatus := "disabled"
	if database.RedisClient != nil {
		redisStatus = "ok"
		ctx := c.Ctx.Request.Context()
		if err := database.RedisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}
	}
	components["redis"] = redisStatus

	status := "healthy"
	if dbStatus != "ok" {
		status = "unhealthy"
	}

	c.OK(map[string]interface{}{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}

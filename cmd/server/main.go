package main

import (
	"log"
	"strconv"

	"github.com/zhitang/assistant-go/app/bootstrap"
	"github.com/zhitang/assistant-go/app/router"
	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	router.Init()

	web.BConfig.AppName = "assistant-go"
	web.BConfig.CopyRequestBody = true
	if p, err := strconv.Atoi(config.AppConfig.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = p
	}

	logger.Info("启动对话服务", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}

// Package bootstrap 负责进程启动时共享基础设施的初始化与回收。
package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/zhitang/assistant-go/internal/config"
	"github.com/zhitang/assistant-go/internal/database"
	"github.com/zhitang/assistant-go/internal/di"
	"github.com/zhitang/assistant-go/internal/kafka"
	"github.com/zhitang/assistant-go/internal/logger"
	"github.com/zhitang/assistant-go/internal/storage"
	"go.uber.org/zap"
)

// App 持有需要在退出时回收的资源
type App struct {
	cleanupTasks []func() error
}

// Init 初始化配置、日志、数据库、缓存、消息与依赖注入容器
func Init() (*App, error) {
	// .env 缺失不是错误
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	app := &App{}

	if _, err := database.InitDB(); err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, database.CloseDB)

	// Redis可选，失败降级为直查数据库
	if _, err := database.InitRedis(); err != nil {
		logger.Warn("Redis初始化失败，按无缓存模式运行", zap.Error(err))
	} else {
		app.cleanupTasks = append(app.cleanupTasks, database.CloseRedis)
	}

	// 对象存储可选，仅影响知识库文件镜像
	if err := storage.InitObjectStore(); err != nil {
		logger.Warn("对象存储初始化失败", zap.Error(err))
	}

	// Kafka可选，标签变更事件发布降级为跳过
	if config.AppConfig.Kafka.Enabled {
		if err := kafka.InitProducer(config.AppConfig.Kafka.Brokers, config.AppConfig.Kafka.Topic); err != nil {
			logger.Warn("Kafka初始化失败", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				if p := kafka.GetProducer(); p != nil {
					return p.Close()
				}
				return nil
			})
		}
	}

	container := di.InitContainer()
	if err := di.RegisterProviders(container); err != nil {
		return nil, err
	}

	logger.Info("应用初始化完成",
		zap.String("env", config.AppConfig.Server.Env),
		zap.String("port", config.AppConfig.Server.Port))
	return app, nil
}

// Shutdown 按注册的逆序回收资源
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("cleanup error: %v\n", err)
		}
	}
	logger.Sync()
}

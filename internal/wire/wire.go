// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/gin-gonic/gin"

	"appforge-api/internal/application/generation"
	"appforge-api/internal/application/preview"
	"appforge-api/internal/config"
	"appforge-api/internal/domain/repository"
	"appforge-api/internal/infrastructure/llm"
	"appforge-api/internal/infrastructure/persistence/redis"
	"appforge-api/internal/infrastructure/storage"
	"appforge-api/internal/interfaces/http/handler"
	"appforge-api/internal/interfaces/http/middleware"
	"appforge-api/internal/interfaces/http/router"
	apperrors "appforge-api/pkg/errors"
	"appforge-api/pkg/logger"
)

// App 应用依赖容器
type App struct {
	Store        repository.FileStore
	Gateway      generation.AIGateway
	Preview      *preview.Coordinator
	Broadcaster  *generation.Broadcaster
	Orchestrator *generation.Orchestrator
	Router       *router.Router
}

// Engine 返回 HTTP 引擎
func (a *App) Engine() *gin.Engine {
	return a.Router.Engine()
}

// InitializeApp 按配置装配整个应用
// 所有组件单例、构造一次、显式传递，返回的 cleanup 负责逆序释放资源
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// 存储后端按配置二选一，调用方只依赖 FileStore 接口
	var (
		store       repository.FileStore
		redisClient *redis.Client
		rateLimiter middleware.RateLimiter
	)
	switch cfg.Storage.Backend {
	case "kv":
		client, err := redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() {
			if err := client.Close(); err != nil {
				logger.Error(ctx, "failed to close redis client", err)
			}
		})
		redisClient = client
		rateLimiter = redis.NewRateLimiter(client)

		snapshots := redis.NewSnapshotStore(client, cfg.Storage.KV.SnapshotKey)
		kvStore, err := storage.NewKVStore(ctx, &cfg.Storage.KV, snapshots)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		store = kvStore

	case "disk", "":
		diskStore, err := storage.NewDiskStore(&cfg.Storage.Disk)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		store = diskStore

	default:
		cleanup()
		return nil, nil, apperrors.New(apperrors.CodeInvalidParam, "unknown storage backend: "+cfg.Storage.Backend)
	}
	cleanups = append(cleanups, func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error(ctx, "failed to close file store", err)
		}
	})

	gateway, err := llm.NewOpenAIGateway(&cfg.LLM)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	previewCoordinator := preview.NewCoordinator(cfg.Preview.Enabled)
	broadcaster := generation.NewBroadcaster()
	orchestrator := generation.NewOrchestrator(
		store,
		gateway,
		previewCoordinator,
		broadcaster,
		&cfg.Generation,
		&cfg.Preview,
	)

	handlers := router.Handlers{
		Health:     handler.NewHealthHandler(redisClient, cfg.App.Version),
		Project:    handler.NewProjectHandler(store, previewCoordinator),
		Generation: handler.NewGenerationHandler(orchestrator, broadcaster),
	}

	app := &App{
		Store:        store,
		Gateway:      gateway,
		Preview:      previewCoordinator,
		Broadcaster:  broadcaster,
		Orchestrator: orchestrator,
		Router:       router.New(cfg, handlers, rateLimiter),
	}
	return app, cleanup, nil
}

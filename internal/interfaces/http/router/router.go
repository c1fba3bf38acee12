// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"appforge-api/internal/config"
	"appforge-api/internal/interfaces/http/handler"
	"appforge-api/internal/interfaces/http/middleware"
)

// Handlers 路由需要的全部处理器
type Handlers struct {
	Health     *handler.HealthHandler
	Project    *handler.ProjectHandler
	Generation *handler.GenerationHandler
}

// Router HTTP 路由器
type Router struct {
	engine      *gin.Engine
	cfg         *config.Config
	handlers    Handlers
	rateLimiter middleware.RateLimiter
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, rateLimiter middleware.RateLimiter) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:      gin.New(),
		cfg:         cfg,
		handlers:    handlers,
		rateLimiter: rateLimiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.RateLimit(r.cfg.Security.RateLimit, r.rateLimiter))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 路由组
	v1 := r.engine.Group("/v1")
	{
		// 项目与文件
		projects := v1.Group("/projects")
		{
			projects.GET("", r.handlers.Project.ListProjects)
			projects.POST("", r.handlers.Generation.Start)
			projects.DELETE("/:name", r.handlers.Project.DeleteProject)
			projects.GET("/:name/files", r.handlers.Project.ListFiles)
			projects.GET("/:name/files/*path", r.handlers.Project.ReadFile)
			projects.PUT("/:name/files/*path", r.handlers.Project.WriteFile)
		}

		// 生成运行
		runs := v1.Group("/runs")
		{
			runs.GET("/:rid/progress", r.handlers.Generation.Progress)
		}

		// 进度事件流
		v1.GET("/progress", r.handlers.Generation.StreamProgress)
	}
}

package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"appforge-api/internal/application/generation"
	"appforge-api/internal/interfaces/http/dto"
	"appforge-api/pkg/logger"
)

// GenerationHandler 生成运行处理器
type GenerationHandler struct {
	orchestrator *generation.Orchestrator
	broadcaster  *generation.Broadcaster
}

// NewGenerationHandler 创建生成运行处理器
func NewGenerationHandler(orchestrator *generation.Orchestrator, broadcaster *generation.Broadcaster) *GenerationHandler {
	return &GenerationHandler{
		orchestrator: orchestrator,
		broadcaster:  broadcaster,
	}
}

// Start 启动一次项目生成运行
// @Summary 启动项目生成
// @Description 接受生成请求，在后台启动一次生成运行并返回运行 ID
// @Tags Generation
// @Accept json
// @Produce json
// @Param body body dto.StartGenerationRequest true "生成请求"
// @Success 202 {object} dto.Response[dto.StartGenerationResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/projects [post]
func (h *GenerationHandler) Start(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.StartGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	runID, err := h.orchestrator.Start(ctx, req.ToGenerationRequest())
	if err != nil {
		dto.FromAppError(c, err)
		return
	}

	logger.Info(ctx, "generation run started", "run_id", runID)
	dto.Accepted(c, dto.StartGenerationResponse{RunID: runID})
}

// Progress 查询运行进度快照
// @Summary 查询生成运行进度
// @Tags Generation
// @Produce json
// @Param rid path string true "运行 ID"
// @Success 200 {object} dto.Response[dto.ProgressResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/runs/{rid}/progress [get]
func (h *GenerationHandler) Progress(c *gin.Context) {
	runID := c.Param("rid")

	progress, err := h.orchestrator.Progress(runID)
	if err != nil {
		dto.FromAppError(c, err)
		return
	}

	dto.Success(c, dto.ToProgressResponse(progress))
}

// StreamProgress 以 SSE 流式推送运行进度
// @Summary 流式订阅生成进度
// @Description 通过 SSE 推送进度事件，运行进入终止阶段或客户端断开时结束
// @Tags Generation
// @Produce text/event-stream
// @Param rid query string false "仅推送指定运行的事件"
// @Success 200 "SSE stream"
// @Router /v1/progress [get]
func (h *GenerationHandler) StreamProgress(c *gin.Context) {
	runFilter := c.Query("rid")

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	events := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(events)

	// 心跳保持连接，空闲时也能及时发现断连
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			if runFilter != "" && event.RunID != runFilter {
				return true
			}
			c.SSEvent("progress", dto.ToProgressResponse(event))
			if event.Phase.Terminal() && runFilter != "" {
				return false
			}
			return true

		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"ts": time.Now().Unix()})
			return true

		case <-c.Request.Context().Done():
			// 客户端断开
			return false
		}
	})
}

package generation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"appforge-api/internal/config"
	"appforge-api/internal/domain/entity"
	"appforge-api/internal/domain/repository"
	apperrors "appforge-api/pkg/errors"
	"appforge-api/pkg/logger"
	"appforge-api/pkg/metrics"
)

var orchestratorTracer = otel.Tracer("application/generation")

// Orchestrator 生成编排器
//
// 状态机：planning → execution → integration → complete，
// 任意阶段遇到不可恢复失败直接跳转到 error。每次阶段/文件
// 变迁都通过 Broadcaster 发布一次进度快照，这是调用方观察
// 运行存活的唯一通道。
type Orchestrator struct {
	store       repository.FileStore
	gateway     AIGateway
	preview     PreviewNotifier
	broadcaster *Broadcaster

	maxAttempts int
	backoff     time.Duration
	entryFile   string
	hotReload   bool

	mu      sync.Mutex
	runs    map[string]*entity.GenerationProgress
	running bool
}

// NewOrchestrator 创建生成编排器
func NewOrchestrator(
	store repository.FileStore,
	gateway AIGateway,
	preview PreviewNotifier,
	broadcaster *Broadcaster,
	genCfg *config.GenerationConfig,
	previewCfg *config.PreviewConfig,
) *Orchestrator {
	maxAttempts := genCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := genCfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Orchestrator{
		store:       store,
		gateway:     gateway,
		preview:     preview,
		broadcaster: broadcaster,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		entryFile:   previewCfg.EntryFilePath,
		hotReload:   previewCfg.HotReload,
		runs:        make(map[string]*entity.GenerationProgress),
	}
}

// Start 启动一次后台生成运行，返回运行 ID
// 同一编排器同时只允许一个活跃运行，冲突时返回 CodeRunInProgress
func (o *Orchestrator) Start(ctx context.Context, req *entity.GenerationRequest) (string, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return "", apperrors.New(apperrors.CodeRunInProgress, "a generation run is already in progress")
	}
	o.running = true
	runID := uuid.NewString()
	progress := entity.NewGenerationProgress(runID)
	o.runs[runID] = progress
	o.mu.Unlock()

	// 后台运行与请求生命周期解耦，仅继承 trace 上下文
	runCtx := logger.WithContext(context.WithoutCancel(ctx), logger.RunIDKey, runID)
	go func() {
		defer func() {
			o.mu.Lock()
			o.running = false
			o.mu.Unlock()
		}()
		if err := o.run(runCtx, req, progress); err != nil {
			logger.Error(runCtx, "generation run failed", err)
		}
	}()

	return runID, nil
}

// Generate 同步执行一次生成运行，返回最终进度
func (o *Orchestrator) Generate(ctx context.Context, req *entity.GenerationRequest) (*entity.GenerationProgress, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, apperrors.New(apperrors.CodeRunInProgress, "a generation run is already in progress")
	}
	o.running = true
	runID := uuid.NewString()
	progress := entity.NewGenerationProgress(runID)
	o.runs[runID] = progress
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	err := o.run(logger.WithContext(ctx, logger.RunIDKey, runID), req, progress)
	return progress, err
}

// Progress 查询一次运行的进度快照
func (o *Orchestrator) Progress(runID string) (entity.GenerationProgress, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	progress, ok := o.runs[runID]
	if !ok {
		return entity.GenerationProgress{}, apperrors.New(apperrors.CodeRunNotFound, "generation run not found: "+runID)
	}
	return progress.Snapshot(), nil
}

// run 驱动完整的状态机，progress 原地更新
func (o *Orchestrator) run(ctx context.Context, req *entity.GenerationRequest, progress *entity.GenerationProgress) error {
	ctx, span := orchestratorTracer.Start(ctx, "Orchestrator.run", trace.WithAttributes(
		attribute.String("run_id", progress.RunID),
		attribute.String("framework", req.Framework),
	))
	defer span.End()

	start := time.Now()
	framework := req.Framework

	fail := func(err error, message string) error {
		progress.Fail(message)
		o.publish(progress)
		metrics.GenerationRunsTotal.WithLabelValues(framework, "error").Inc()
		metrics.GenerationRunDuration.WithLabelValues(framework).Observe(time.Since(start).Seconds())
		span.RecordError(err)
		return err
	}

	// planning: 规划失败仅在网关重试预算耗尽时传播，畸形输出走默认值
	o.publish(progress)
	raw, err := o.withRetry(ctx, func(ctx context.Context) (string, error) {
		return o.gateway.Plan(ctx, buildPlanPrompt(req))
	})
	if err != nil {
		wrapped := apperrors.Wrap(err, apperrors.CodePlanningFailed, "planning failed")
		return fail(wrapped, wrapped.Message)
	}
	plan := parsePlan(ctx, raw, req)
	if plan.Framework != "" {
		framework = plan.Framework
	}
	logger.Info(ctx, "project plan ready",
		"name", plan.Name,
		"framework", plan.Framework,
		"files", len(plan.Files),
	)

	root, err := o.store.CreateProject(ctx, Slugify(plan.Name))
	if err != nil {
		return fail(err, "failed to create project")
	}
	progress.Project = root
	progress.TotalFiles = plan.FileCount()

	// execution: 依赖序逐文件生成
	ordered := OrderFileSpecs(plan.Files)
	for _, spec := range ordered {
		if spec.Kind == entity.EntryKindDirectory {
			continue
		}
		progress.StartFile(spec.Path)
		o.publish(progress)

		content, err := o.withRetry(ctx, func(ctx context.Context) (string, error) {
			return o.gateway.GenerateFileContent(ctx, buildFilePrompt(plan, spec, progress.CompletedFiles))
		})
		if err != nil {
			metrics.GenerationFilesTotal.WithLabelValues(framework, "error").Inc()
			wrapped := apperrors.Wrap(err, apperrors.CodeGenerationFailed, "failed to generate "+spec.Path)
			return fail(wrapped, wrapped.Message)
		}
		if err := o.store.WriteFile(ctx, root, spec.Path, content); err != nil {
			metrics.GenerationFilesTotal.WithLabelValues(framework, "error").Inc()
			return fail(err, "failed to write "+spec.Path)
		}
		if o.preview != nil {
			o.preview.NotifyFileChanged(root+"/"+spec.Path, content)
		}
		metrics.GenerationFilesTotal.WithLabelValues(framework, "success").Inc()
		progress.CompleteFile(spec.Path)
		o.publish(progress)
	}

	// integration: 写入固定的清单、描述与说明文件
	progress.SetPhase(entity.PhaseIntegration, "writing project manifest")
	o.publish(progress)
	if err := o.writeIntegration(ctx, root, plan, progress.CompletedFiles); err != nil {
		return fail(err, "integration failed")
	}

	if o.preview != nil {
		o.preview.Activate(root, o.entryFile, o.hotReload)
	}

	progress.SetPhase(entity.PhaseComplete, "generation complete")
	o.publish(progress)
	metrics.GenerationRunsTotal.WithLabelValues(framework, "success").Inc()
	metrics.GenerationRunDuration.WithLabelValues(framework).Observe(time.Since(start).Seconds())
	logger.Info(ctx, "generation run complete",
		"project", root,
		"files", len(progress.CompletedFiles),
		"duration", time.Since(start).String(),
	)
	return nil
}

func (o *Orchestrator) writeIntegration(ctx context.Context, root string, plan *entity.ProjectPlan, generated []string) error {
	ctx, span := orchestratorTracer.Start(ctx, "Orchestrator.writeIntegration")
	defer span.End()
	return writeIntegrationFiles(ctx, o.store, root, plan, generated)
}

// withRetry 以线性退避执行网关调用，最多 maxAttempts 次
// 第 n 次失败后等待 n * backoff，期间响应 ctx 取消
func (o *Orchestrator) withRetry(ctx context.Context, call func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		logger.Warn(ctx, "gateway call failed",
			"attempt", attempt,
			"max_attempts", o.maxAttempts,
			"error", err.Error(),
		)
		if attempt == o.maxAttempts {
			break
		}
		metrics.GenerationRetriesTotal.Inc()
		select {
		case <-time.After(time.Duration(attempt) * o.backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// publish 发布当前进度快照
func (o *Orchestrator) publish(progress *entity.GenerationProgress) {
	if o.broadcaster != nil {
		o.broadcaster.Publish(progress.Snapshot())
	}
}

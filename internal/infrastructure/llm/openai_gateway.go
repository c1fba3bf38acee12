// Package llm 提供 LLM 网关实现
package llm

import (
	"context"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"appforge-api/internal/config"
	apperrors "appforge-api/pkg/errors"
	"appforge-api/pkg/logger"
	"appforge-api/pkg/metrics"
)

var llmTracer = otel.Tracer("infrastructure/llm")

// OpenAIGateway 基于 OpenAI 兼容接口的 AI 网关
// 只做单次调用，重试语义由编排器负责
type OpenAIGateway struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIGateway 按默认提供商配置创建网关
func NewOpenAIGateway(cfg *config.LLMConfig) (*OpenAIGateway, error) {
	providerCfg, ok := cfg.Providers[cfg.DefaultProvider]
	if !ok {
		return nil, apperrors.New(apperrors.CodeLLMCallFailed, "provider "+cfg.DefaultProvider+" not found in LLM config")
	}

	clientCfg := openai.DefaultConfig(providerCfg.APIKey)
	if providerCfg.BaseURL != "" {
		clientCfg.BaseURL = providerCfg.BaseURL
	}
	timeout := providerCfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIGateway{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       providerCfg.Model,
		maxTokens:   providerCfg.MaxTokens,
		temperature: float32(providerCfg.Temperature),
	}, nil
}

// Plan 提交规划提示词
func (g *OpenAIGateway) Plan(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, "plan", planSystemPrompt, prompt)
}

// GenerateFileContent 提交单文件生成提示词
func (g *OpenAIGateway) GenerateFileContent(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, "generate_file", fileSystemPrompt, prompt)
}

const planSystemPrompt = "You are a senior mobile engineer. " +
	"You plan project structures and respond with a single JSON object and nothing else."

const fileSystemPrompt = "You are a senior mobile engineer. " +
	"You write complete, production-quality source files and respond with raw file content only."

func (g *OpenAIGateway) complete(ctx context.Context, operation, system, prompt string) (string, error) {
	ctx, span := llmTracer.Start(ctx, "OpenAIGateway."+operation, trace.WithAttributes(
		attribute.String("llm.model", g.model),
	))
	defer span.End()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	duration := time.Since(start)
	metrics.LLMCallDuration.WithLabelValues(operation, g.model).Observe(duration.Seconds())

	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(operation, g.model, "error").Inc()
		span.RecordError(err)
		logger.Error(ctx, "llm call failed", err,
			"operation", operation,
			"model", g.model,
			"duration", duration.String(),
		)
		return "", apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "llm call failed")
	}
	if len(resp.Choices) == 0 {
		metrics.LLMCallTotal.WithLabelValues(operation, g.model, "error").Inc()
		return "", apperrors.New(apperrors.CodeLLMCallFailed, "llm returned no choices")
	}

	metrics.LLMCallTotal.WithLabelValues(operation, g.model, "success").Inc()
	logger.Debug(ctx, "llm call complete",
		"operation", operation,
		"model", g.model,
		"duration", duration.String(),
		"tokens", resp.Usage.TotalTokens,
	)
	return resp.Choices[0].Message.Content, nil
}

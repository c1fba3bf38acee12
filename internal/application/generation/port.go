// Package generation 提供项目生成编排
package generation

import (
	"context"
)

// AIGateway LLM 网关能力抽象
// 重试由调用方（编排器）负责，网关实现只做单次调用
type AIGateway interface {
	// Plan 提交规划提示词，返回模型原始文本
	Plan(ctx context.Context, prompt string) (string, error)

	// GenerateFileContent 提交单文件生成提示词，返回文件内容文本
	GenerateFileContent(ctx context.Context, prompt string) (string, error)
}

// PreviewNotifier 预览协调端口
// 核心只依赖"是否接受"布尔返回，不关心预览内部
type PreviewNotifier interface {
	// Activate 记录当前活跃项目
	Activate(projectRoot, entryFilePath string, hotReload bool)

	// NotifyFileChanged 通知文件变更以便预览失效
	NotifyFileChanged(path, content string) bool
}

// Package preview 提供生成结果的实时预览协调
package preview

import (
	"sync"

	"appforge-api/pkg/logger"
)

// Coordinator 预览协调器
// 记录当前活跃项目的入口信息，并在生成后的文件写入时收到变更通知
type Coordinator struct {
	mu        sync.RWMutex
	enabled   bool
	root      string
	entryFile string
	hotReload bool
}

// NewCoordinator 创建预览协调器
func NewCoordinator(enabled bool) *Coordinator {
	return &Coordinator{enabled: enabled}
}

// Activate 将一个项目设为预览目标
func (c *Coordinator) Activate(projectRoot, entryFilePath string, hotReload bool) {
	c.mu.Lock()
	c.root = projectRoot
	c.entryFile = entryFilePath
	c.hotReload = hotReload
	c.mu.Unlock()
	logger.Default().Info("preview activated",
		"project", projectRoot,
		"entry", entryFilePath,
		"hot_reload", hotReload,
	)
}

// NotifyFileChanged 通知文件变更，返回预览是否接受该变更
// 未启用或无活跃项目时直接拒绝
func (c *Coordinator) NotifyFileChanged(path, content string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.enabled || c.root == "" {
		return false
	}
	if !c.hotReload {
		return false
	}
	logger.Default().Debug("preview invalidated", "path", path, "bytes", len(content))
	return true
}

// Active 返回当前预览目标（项目根、入口文件），无活跃项目时 ok 为 false
func (c *Coordinator) Active() (root, entryFile string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root, c.entryFile, c.root != ""
}

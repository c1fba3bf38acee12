// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"appforge-api/internal/domain/entity"
)

// FileStore 项目文件存储接口
// 两个可互换实现（本地文件系统 / 平面键值映射），对调用方语义完全一致：
// ListFiles 与 ListProjects 的结果在两种后端上逐比特等价
type FileStore interface {
	// CreateProject 创建项目根目录及固定脚手架子目录，幂等
	CreateProject(ctx context.Context, name string) (string, error)

	// WriteFile 原子写入文件内容，隐式创建缺失的祖先目录
	WriteFile(ctx context.Context, root, relPath, content string) error

	// ReadFile 读取文件内容；路径不存在或为目录时返回 NotFound
	ReadFile(ctx context.Context, root, relPath string) (string, error)

	// ListFiles 枚举项目下所有直接与嵌套后代，不含项目根自身，无重复条目
	ListFiles(ctx context.Context, root string) ([]entity.ProjectEntry, error)

	// DeleteProject 删除项目根及其全部内容，幂等
	DeleteProject(ctx context.Context, name string) error

	// CopyFile 复制文件内容；src 不是文件时返回 NotFound，隐式创建目标祖先目录
	CopyFile(ctx context.Context, src, dst string) error

	// ListProjects 列出存储根下的全部项目名，名称唯一，顺序不保证
	ListProjects(ctx context.Context) ([]string, error)

	// Flush 强制执行挂起的持久化；返回上一次后台持久化失败的错误（若有）
	Flush(ctx context.Context) error

	// Close 关闭存储，保证关闭前完成最后一次持久化
	Close(ctx context.Context) error
}

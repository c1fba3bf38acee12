// Package entity 定义领域实体
package entity

import (
	"time"
)

// EntryKind 项目条目类型
type EntryKind string

const (
	EntryKindFile      EntryKind = "file"
	EntryKindDirectory EntryKind = "directory"
)

// ProjectEntry 项目根下的一个文件或目录
// Path 为项目内相对路径（斜杠分隔），在项目内唯一
type ProjectEntry struct {
	Path       string    `json:"path"`
	Kind       EntryKind `json:"kind"`
	Content    string    `json:"content,omitempty"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// IsDir 是否为目录条目
func (e ProjectEntry) IsDir() bool {
	return e.Kind == EntryKindDirectory
}

// ScaffoldDirs 新项目的固定脚手架子目录
var ScaffoldDirs = []string{"src", "assets", "components", "screens", "services"}

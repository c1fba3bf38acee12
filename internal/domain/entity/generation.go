// Package entity 定义领域实体
package entity

import (
	"time"
)

// ProjectType 项目类型
type ProjectType string

const (
	ProjectTypeApp       ProjectType = "app"
	ProjectTypeGame      ProjectType = "game"
	ProjectTypeComponent ProjectType = "component"
)

// GenerationRequest 生成运行的输入，提交后不可变
type GenerationRequest struct {
	Description string      `json:"description"`
	ProjectType ProjectType `json:"project_type"`
	Framework   string      `json:"framework"`
	Features    []string    `json:"features,omitempty"`
	Styling     string      `json:"styling,omitempty"`
}

// Phase 生成运行阶段
type Phase string

const (
	PhasePlanning    Phase = "planning"
	PhaseExecution   Phase = "execution"
	PhaseIntegration Phase = "integration"
	PhaseComplete    Phase = "complete"
	PhaseError       Phase = "error"
)

// Terminal 是否为终止阶段
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// GenerationProgress 可观测的运行状态
// 运行开始时创建，编排器在每次阶段/文件变迁时原地更新
type GenerationProgress struct {
	RunID          string    `json:"run_id"`
	Project        string    `json:"project,omitempty"`
	Phase          Phase     `json:"phase"`
	CurrentFile    string    `json:"current_file,omitempty"`
	CompletedFiles []string  `json:"completed_files"`
	TotalFiles     int       `json:"total_files"`
	Message        string    `json:"message"`
	Error          string    `json:"error,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewGenerationProgress 创建初始运行状态
func NewGenerationProgress(runID string) *GenerationProgress {
	return &GenerationProgress{
		RunID:          runID,
		Phase:          PhasePlanning,
		CompletedFiles: []string{},
		Message:        "planning project structure",
		UpdatedAt:      time.Now(),
	}
}

// SetPhase 进入新阶段
func (g *GenerationProgress) SetPhase(phase Phase, message string) {
	g.Phase = phase
	g.CurrentFile = ""
	g.Message = message
	g.UpdatedAt = time.Now()
}

// StartFile 开始生成一个文件
func (g *GenerationProgress) StartFile(path string) {
	g.Phase = PhaseExecution
	g.CurrentFile = path
	g.Message = "generating " + path
	g.UpdatedAt = time.Now()
}

// CompleteFile 记录一个已完成文件
func (g *GenerationProgress) CompleteFile(path string) {
	g.CompletedFiles = append(g.CompletedFiles, path)
	g.UpdatedAt = time.Now()
}

// Fail 进入错误终止阶段
func (g *GenerationProgress) Fail(message string) {
	g.Phase = PhaseError
	g.Error = message
	g.Message = "generation failed: " + message
	g.UpdatedAt = time.Now()
}

// Snapshot 返回进度的浅拷贝（completed 列表复制），供事件发布使用
func (g *GenerationProgress) Snapshot() GenerationProgress {
	cp := *g
	cp.CompletedFiles = append([]string(nil), g.CompletedFiles...)
	return cp
}

package dto

import (
	"strings"

	"appforge-api/internal/domain/entity"
)

// StartGenerationRequest 启动生成运行的请求体
type StartGenerationRequest struct {
	Description string   `json:"description" binding:"required"`
	ProjectType string   `json:"project_type"`
	Framework   string   `json:"framework"`
	Features    []string `json:"features"`
	Styling     string   `json:"styling"`
}

// ToGenerationRequest 转换为领域生成请求，缺省字段取默认值
func (r *StartGenerationRequest) ToGenerationRequest() *entity.GenerationRequest {
	projectType := entity.ProjectType(strings.ToLower(strings.TrimSpace(r.ProjectType)))
	switch projectType {
	case entity.ProjectTypeApp, entity.ProjectTypeGame, entity.ProjectTypeComponent:
	default:
		projectType = entity.ProjectTypeApp
	}
	framework := strings.TrimSpace(r.Framework)
	if framework == "" {
		framework = "expo"
	}
	return &entity.GenerationRequest{
		Description: strings.TrimSpace(r.Description),
		ProjectType: projectType,
		Framework:   framework,
		Features:    r.Features,
		Styling:     r.Styling,
	}
}

// StartGenerationResponse 启动生成运行的响应
type StartGenerationResponse struct {
	RunID string `json:"run_id"`
}

// ProgressResponse 进度快照响应
type ProgressResponse struct {
	RunID          string   `json:"run_id"`
	Project        string   `json:"project,omitempty"`
	Phase          string   `json:"phase"`
	CurrentFile    string   `json:"current_file,omitempty"`
	CompletedFiles []string `json:"completed_files"`
	TotalFiles     int      `json:"total_files"`
	Message        string   `json:"message"`
	Error          string   `json:"error,omitempty"`
}

// ToProgressResponse 转换进度快照
func ToProgressResponse(p entity.GenerationProgress) ProgressResponse {
	return ProgressResponse{
		RunID:          p.RunID,
		Project:        p.Project,
		Phase:          string(p.Phase),
		CurrentFile:    p.CurrentFile,
		CompletedFiles: p.CompletedFiles,
		TotalFiles:     p.TotalFiles,
		Message:        p.Message,
		Error:          p.Error,
	}
}

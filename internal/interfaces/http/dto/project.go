package dto

import (
	"time"

	"appforge-api/internal/domain/entity"
)

// ProjectListResponse 项目名列表响应
type ProjectListResponse struct {
	Projects []string `json:"projects"`
	Total    int      `json:"total"`
}

// FileEntryResponse 项目文件条目响应
type FileEntryResponse struct {
	Path       string    `json:"path"`
	Kind       string    `json:"kind"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// FileListResponse 项目文件列表响应
type FileListResponse struct {
	Project string              `json:"project"`
	Files   []FileEntryResponse `json:"files"`
	Total   int                 `json:"total"`
}

// FileContentResponse 文件内容响应
type FileContentResponse struct {
	Project string `json:"project"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFileRequest 写入文件请求体
type WriteFileRequest struct {
	Content string `json:"content" binding:"required"`
}

// ToFileListResponse 转换文件条目列表
func ToFileListResponse(project string, entries []entity.ProjectEntry) FileListResponse {
	files := make([]FileEntryResponse, 0, len(entries))
	for _, e := range entries {
		files = append(files, FileEntryResponse{
			Path:       e.Path,
			Kind:       string(e.Kind),
			Size:       e.Size,
			ModifiedAt: e.ModifiedAt,
		})
	}
	return FileListResponse{
		Project: project,
		Files:   files,
		Total:   len(files),
	}
}

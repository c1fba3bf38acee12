// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"appforge-api/internal/domain/repository"
	"appforge-api/internal/interfaces/http/dto"
	"appforge-api/pkg/logger"
)

// ProjectHandler 项目与文件处理器
type ProjectHandler struct {
	store   repository.FileStore
	preview PreviewNotifier
}

// PreviewNotifier 写入后的预览失效通知
type PreviewNotifier interface {
	NotifyFileChanged(path, content string) bool
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(store repository.FileStore, preview PreviewNotifier) *ProjectHandler {
	return &ProjectHandler{
		store:   store,
		preview: preview,
	}
}

// ListProjects 获取项目列表
// @Summary 获取项目列表
// @Tags Projects
// @Produce json
// @Success 200 {object} dto.Response[dto.ProjectListResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()

	projects, err := h.store.ListProjects(ctx)
	if err != nil {
		logger.Error(ctx, "failed to list projects", err)
		dto.FromAppError(c, err)
		return
	}

	dto.Success(c, dto.ProjectListResponse{
		Projects: projects,
		Total:    len(projects),
	})
}

// DeleteProject 删除项目
// @Summary 删除项目及其全部文件
// @Tags Projects
// @Param name path string true "项目名"
// @Success 204 "No Content"
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/projects/{name} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	if err := h.store.DeleteProject(ctx, name); err != nil {
		logger.Error(ctx, "failed to delete project", err, "project", name)
		dto.FromAppError(c, err)
		return
	}

	dto.NoContent(c)
}

// ListFiles 获取项目文件列表
// @Summary 枚举项目下全部文件与目录
// @Tags Projects
// @Produce json
// @Param name path string true "项目名"
// @Success 200 {object} dto.Response[dto.FileListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{name}/files [get]
func (h *ProjectHandler) ListFiles(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	entries, err := h.store.ListFiles(ctx, name)
	if err != nil {
		dto.FromAppError(c, err)
		return
	}

	dto.Success(c, dto.ToFileListResponse(name, entries))
}

// ReadFile 读取文件内容
// @Summary 读取项目内单个文件的内容
// @Tags Projects
// @Produce json
// @Param name path string true "项目名"
// @Param path path string true "项目内相对路径"
// @Success 200 {object} dto.Response[dto.FileContentResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/projects/{name}/files/{path} [get]
func (h *ProjectHandler) ReadFile(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")
	relPath := strings.TrimPrefix(c.Param("path"), "/")

	content, err := h.store.ReadFile(ctx, name, relPath)
	if err != nil {
		dto.FromAppError(c, err)
		return
	}

	dto.Success(c, dto.FileContentResponse{
		Project: name,
		Path:    relPath,
		Content: content,
	})
}

// WriteFile 写入文件内容
// @Summary 原子写入项目内单个文件，缺失的祖先目录隐式创建
// @Tags Projects
// @Accept json
// @Produce json
// @Param name path string true "项目名"
// @Param path path string true "项目内相对路径"
// @Param body body dto.WriteFileRequest true "文件内容"
// @Success 200 {object} dto.Response[dto.FileContentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/projects/{name}/files/{path} [put]
func (h *ProjectHandler) WriteFile(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")
	relPath := strings.TrimPrefix(c.Param("path"), "/")

	var req dto.WriteFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.store.WriteFile(ctx, name, relPath, req.Content); err != nil {
		logger.Error(ctx, "failed to write file", err, "project", name, "path", relPath)
		dto.FromAppError(c, err)
		return
	}

	if h.preview != nil {
		h.preview.NotifyFileChanged(name+"/"+relPath, req.Content)
	}

	dto.Success(c, dto.FileContentResponse{
		Project: name,
		Path:    relPath,
		Content: req.Content,
	})
}

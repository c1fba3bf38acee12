// Package storage 提供项目文件存储的两种可互换实现
package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"appforge-api/internal/config"
	"appforge-api/internal/domain/entity"
	"appforge-api/internal/domain/repository"
	"appforge-api/pkg/errors"
	"appforge-api/pkg/metrics"
)

var diskTracer = otel.Tracer("storage.disk")

// DiskStore 基于本地文件系统的存储实现
// 写入通过 临时文件 + rename 保证原子性
type DiskStore struct {
	baseDir string
}

var _ repository.FileStore = (*DiskStore)(nil)

// NewDiskStore 创建文件系统存储
func NewDiskStore(cfg *config.DiskConfig) (*DiskStore, error) {
	if cfg == nil || strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "storage base dir not configured")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "failed to create storage base dir")
	}
	return &DiskStore{baseDir: cfg.BaseDir}, nil
}

// CreateProject 创建项目根目录及脚手架子目录，幂等
func (s *DiskStore) CreateProject(ctx context.Context, name string) (string, error) {
	ctx, span := diskTracer.Start(ctx, "disk.CreateProject",
		trace.WithAttributes(attribute.String("project", name)))
	defer span.End()

	cleaned, err := CleanProjectName(name)
	if err != nil {
		return "", s.record(span, "create_project", err)
	}

	rootAbs := filepath.Join(s.baseDir, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(rootAbs, 0o755); err != nil {
		return "", s.record(span, "create_project",
			errors.Wrap(err, errors.CodeStorageError, "failed to create project root"))
	}
	for _, dir := range entity.ScaffoldDirs {
		if err := os.MkdirAll(filepath.Join(rootAbs, dir), 0o755); err != nil {
			return "", s.record(span, "create_project",
				errors.Wrap(err, errors.CodeStorageError, "failed to create scaffold dir"))
		}
	}
	return cleaned, s.record(span, "create_project", nil)
}

// WriteFile 原子写入：写临时文件后 rename 替换，读者不会观察到半写状态
func (s *DiskStore) WriteFile(ctx context.Context, root, relPath, content string) error {
	ctx, span := diskTracer.Start(ctx, "disk.WriteFile",
		trace.WithAttributes(attribute.String("project", root), attribute.String("path", relPath)))
	defer span.End()

	abs, err := s.resolve(root, relPath)
	if err != nil {
		return s.record(span, "write_file", err)
	}

	// 隐式物化缺失的祖先目录
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return s.record(span, "write_file",
			errors.Wrap(err, errors.CodeStorageError, "failed to create parent dirs"))
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".appforge-*")
	if err != nil {
		return s.record(span, "write_file",
			errors.Wrap(err, errors.CodeStorageError, "failed to create temp file"))
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return s.record(span, "write_file",
			errors.Wrap(err, errors.CodeStorageError, "failed to write temp file"))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return s.record(span, "write_file",
			errors.Wrap(err, errors.CodeStorageError, "failed to close temp file"))
	}
	if err := os.Rename(tmpName, abs); err != nil {
		os.Remove(tmpName)
		return s.record(span, "write_file",
			errors.Wrap(err, errors.CodeStorageError, "failed to replace file"))
	}
	return s.record(span, "write_file", nil)
}

// ReadFile 读取文件内容
func (s *DiskStore) ReadFile(ctx context.Context, root, relPath string) (string, error) {
	ctx, span := diskTracer.Start(ctx, "disk.ReadFile",
		trace.WithAttributes(attribute.String("project", root), attribute.String("path", relPath)))
	defer span.End()

	abs, err := s.resolve(root, relPath)
	if err != nil {
		return "", s.record(span, "read_file", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", s.record(span, "read_file",
				errors.Wrap(err, errors.CodeFileNotFound, "file not found").WithDetail(relPath))
		}
		return "", s.record(span, "read_file",
			errors.Wrap(err, errors.CodeStorageError, "failed to stat file"))
	}
	if info.IsDir() {
		return "", s.record(span, "read_file",
			errors.New(errors.CodeFileNotFound, "path is a directory").WithDetail(relPath))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", s.record(span, "read_file",
			errors.Wrap(err, errors.CodeStorageError, "failed to read file"))
	}
	return string(data), s.record(span, "read_file", nil)
}

// ListFiles 枚举项目下所有后代条目，不含项目根自身
func (s *DiskStore) ListFiles(ctx context.Context, root string) ([]entity.ProjectEntry, error) {
	ctx, span := diskTracer.Start(ctx, "disk.ListFiles",
		trace.WithAttributes(attribute.String("project", root)))
	defer span.End()

	cleaned, err := CleanProjectName(root)
	if err != nil {
		return nil, s.record(span, "list_files", err)
	}
	rootAbs := filepath.Join(s.baseDir, filepath.FromSlash(cleaned))
	if _, err := os.Stat(rootAbs); err != nil {
		if os.IsNotExist(err) {
			return nil, s.record(span, "list_files",
				errors.Wrap(err, errors.CodeProjectNotFound, "project not found").WithDetail(root))
		}
		return nil, s.record(span, "list_files",
			errors.Wrap(err, errors.CodeStorageError, "failed to stat project root"))
	}

	var entries []entity.ProjectEntry
	err = filepath.WalkDir(rootAbs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == rootAbs {
			return nil
		}
		rel, relErr := filepath.Rel(rootAbs, path)
		if relErr != nil {
			return relErr
		}
		e := entity.ProjectEntry{
			Path: filepath.ToSlash(rel),
			Kind: entity.EntryKindFile,
		}
		if d.IsDir() {
			e.Kind = entity.EntryKindDirectory
		}
		if info, infoErr := d.Info(); infoErr == nil {
			e.ModifiedAt = info.ModTime()
			if !d.IsDir() {
				e.Size = info.Size()
			}
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, s.record(span, "list_files",
			errors.Wrap(err, errors.CodeStorageError, "failed to walk project"))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, s.record(span, "list_files", nil)
}

// DeleteProject 删除项目根及其全部内容，幂等
func (s *DiskStore) DeleteProject(ctx context.Context, name string) error {
	ctx, span := diskTracer.Start(ctx, "disk.DeleteProject",
		trace.WithAttributes(attribute.String("project", name)))
	defer span.End()

	cleaned, err := CleanProjectName(name)
	if err != nil {
		return s.record(span, "delete_project", err)
	}
	if err := os.RemoveAll(filepath.Join(s.baseDir, filepath.FromSlash(cleaned))); err != nil {
		return s.record(span, "delete_project",
			errors.Wrap(err, errors.CodeStorageError, "failed to delete project"))
	}
	return s.record(span, "delete_project", nil)
}

// CopyFile 复制文件；src/dst 为含项目根的存储相对路径
func (s *DiskStore) CopyFile(ctx context.Context, src, dst string) error {
	ctx, span := diskTracer.Start(ctx, "disk.CopyFile",
		trace.WithAttributes(attribute.String("src", src), attribute.String("dst", dst)))
	defer span.End()

	srcRoot, srcRel := FirstSegment(src)
	dstRoot, dstRel := FirstSegment(dst)
	if srcRoot == "" || srcRel == "" || dstRoot == "" || dstRel == "" {
		return s.record(span, "copy_file",
			errors.New(errors.CodeInvalidParam, "copy requires project-qualified file paths"))
	}

	content, err := s.ReadFile(ctx, srcRoot, srcRel)
	if err != nil {
		return s.record(span, "copy_file", err)
	}
	return s.record(span, "copy_file", s.WriteFile(ctx, dstRoot, dstRel, content))
}

// ListProjects 列出存储根下的全部项目名
func (s *DiskStore) ListProjects(ctx context.Context) ([]string, error) {
	ctx, span := diskTracer.Start(ctx, "disk.ListProjects")
	defer span.End()

	dirEntries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, s.record(span, "list_projects", nil)
		}
		return nil, s.record(span, "list_projects",
			errors.Wrap(err, errors.CodeStorageError, "failed to read storage base dir"))
	}

	names := make([]string, 0, len(dirEntries))
	for _, d := range dirEntries {
		if d.IsDir() {
			names = append(names, d.Name())
		}
	}
	return names, s.record(span, "list_projects", nil)
}

// Flush 文件系统后端为直写，无挂起持久化
func (s *DiskStore) Flush(ctx context.Context) error {
	return nil
}

// Close 文件系统后端无需清理
func (s *DiskStore) Close(ctx context.Context) error {
	return nil
}

// resolve 将 (root, rel) 解析为基目录下的绝对路径
func (s *DiskStore) resolve(root, relPath string) (string, error) {
	cleanedRoot, err := CleanProjectName(root)
	if err != nil {
		return "", err
	}
	cleanedRel, err := CleanRel(relPath)
	if err != nil {
		return "", err
	}
	if cleanedRel == "" {
		return "", errors.New(errors.CodeInvalidParam, "empty file path")
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(cleanedRoot), filepath.FromSlash(cleanedRel)), nil
}

// record 统一记录指标与 span 错误
func (s *DiskStore) record(span trace.Span, op string, err error) error {
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	metrics.FileStoreOpsTotal.WithLabelValues("disk", op, status).Inc()
	return err
}

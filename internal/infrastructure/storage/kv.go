// Package storage 提供项目文件存储的两种可互换实现
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"appforge-api/internal/config"
	"appforge-api/internal/domain/entity"
	"appforge-api/internal/domain/repository"
	"appforge-api/pkg/errors"
	"appforge-api/pkg/metrics"
)

var kvTracer = otel.Tracer("storage.kv")

const defaultFlushDebounce = time.Second

// KVStore 基于内存平面映射的存储实现
// 每次写入是一次互斥保护下的映射变更（天然原子），持久化通过防抖快照完成：
// 每次写入取消并重新调度挂起的快照，连续写入在防抖窗口内合并为一次序列化
type KVStore struct {
	mu      sync.Mutex
	entries map[string]snapshotEntry

	persist  SnapshotStore
	debounce time.Duration

	timer    *time.Timer
	dirty    bool
	gen      uint64
	flushErr error
	closed   bool
}

var _ repository.FileStore = (*KVStore)(nil)

// NewKVStore 创建平面映射存储，启动时加载已持久化的快照
func NewKVStore(ctx context.Context, cfg *config.KVConfig, persist SnapshotStore) (*KVStore, error) {
	if persist == nil {
		return nil, errors.New(errors.CodeInvalidParam, "snapshot store not configured")
	}
	debounce := defaultFlushDebounce
	if cfg != nil && cfg.FlushDebounce > 0 {
		debounce = cfg.FlushDebounce
	}

	s := &KVStore{
		entries:  make(map[string]snapshotEntry),
		persist:  persist,
		debounce: debounce,
	}

	data, ok, err := persist.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistenceError, "failed to load snapshot")
	}
	if ok {
		loaded, err := decodeSnapshot(data)
		if err != nil {
			return nil, err
		}
		s.entries = loaded
	}
	return s, nil
}

// CreateProject 创建项目根条目及脚手架子目录，幂等
func (s *KVStore) CreateProject(ctx context.Context, name string) (string, error) {
	_, span := kvTracer.Start(ctx, "kv.CreateProject",
		trace.WithAttributes(attribute.String("project", name)))
	defer span.End()

	cleaned, err := CleanProjectName(name)
	if err != nil {
		return "", s.record(span, "create_project", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", s.record(span, "create_project",
			errors.New(errors.CodeStorageError, "store is closed"))
	}
	if err := s.ensureDir(cleaned); err != nil {
		s.mu.Unlock()
		return "", s.record(span, "create_project", err)
	}
	for _, dir := range entity.ScaffoldDirs {
		if err := s.ensureDir(cleaned + "/" + dir); err != nil {
			s.mu.Unlock()
			return "", s.record(span, "create_project", err)
		}
	}
	s.markDirtyLocked()
	s.mu.Unlock()

	return cleaned, s.record(span, "create_project", nil)
}

// WriteFile 单次映射变更即为原子写入，随后调度防抖持久化
func (s *KVStore) WriteFile(ctx context.Context, root, relPath, content string) error {
	_, span := kvTracer.Start(ctx, "kv.WriteFile",
		trace.WithAttributes(attribute.String("project", root), attribute.String("path", relPath)))
	defer span.End()

	key, err := s.fileKey(root, relPath)
	if err != nil {
		return s.record(span, "write_file", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.record(span, "write_file",
			errors.New(errors.CodeStorageError, "store is closed"))
	}
	if existing, ok := s.entries[key]; ok && existing.Kind == entity.EntryKindDirectory {
		s.mu.Unlock()
		return s.record(span, "write_file",
			errors.New(errors.CodeStorageError, "failed to replace file: path is a directory").WithDetail(relPath))
	}
	// 隐式物化缺失的祖先目录条目；祖先已是文件时与磁盘后端一致地报错
	for _, parent := range ParentChain(key) {
		if err := s.ensureDir(parent); err != nil {
			s.mu.Unlock()
			return s.record(span, "write_file", err)
		}
	}
	s.entries[key] = snapshotEntry{
		Kind:       entity.EntryKindFile,
		Content:    content,
		Size:       int64(len(content)),
		ModifiedAt: time.Now(),
	}
	s.markDirtyLocked()
	s.mu.Unlock()

	return s.record(span, "write_file", nil)
}

// ReadFile 读取文件内容
func (s *KVStore) ReadFile(ctx context.Context, root, relPath string) (string, error) {
	_, span := kvTracer.Start(ctx, "kv.ReadFile",
		trace.WithAttributes(attribute.String("project", root), attribute.String("path", relPath)))
	defer span.End()

	key, err := s.fileKey(root, relPath)
	if err != nil {
		return "", s.record(span, "read_file", err)
	}

	s.mu.Lock()
	entry, ok := s.entries[key]
	s.mu.Unlock()

	if !ok {
		return "", s.record(span, "read_file",
			errors.New(errors.CodeFileNotFound, "file not found").WithDetail(relPath))
	}
	if entry.Kind == entity.EntryKindDirectory {
		return "", s.record(span, "read_file",
			errors.New(errors.CodeFileNotFound, "path is a directory").WithDetail(relPath))
	}
	return entry.Content, s.record(span, "read_file", nil)
}

// ListFiles 从平面键空间派生树视图：取根前缀下的全部键，按路径排序
func (s *KVStore) ListFiles(ctx context.Context, root string) ([]entity.ProjectEntry, error) {
	_, span := kvTracer.Start(ctx, "kv.ListFiles",
		trace.WithAttributes(attribute.String("project", root)))
	defer span.End()

	cleaned, err := CleanProjectName(root)
	if err != nil {
		return nil, s.record(span, "list_files", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[cleaned]; !ok {
		return nil, s.record(span, "list_files",
			errors.New(errors.CodeProjectNotFound, "project not found").WithDetail(root))
	}

	prefix := cleaned + "/"
	var result []entity.ProjectEntry
	for key, entry := range s.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		e := entity.ProjectEntry{
			Path:       key[len(prefix):],
			Kind:       entry.Kind,
			ModifiedAt: entry.ModifiedAt,
		}
		if entry.Kind == entity.EntryKindFile {
			e.Size = entry.Size
		}
		result = append(result, e)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, s.record(span, "list_files", nil)
}

// DeleteProject 删除项目根条目及其前缀下的全部键，幂等
func (s *KVStore) DeleteProject(ctx context.Context, name string) error {
	_, span := kvTracer.Start(ctx, "kv.DeleteProject",
		trace.WithAttributes(attribute.String("project", name)))
	defer span.End()

	cleaned, err := CleanProjectName(name)
	if err != nil {
		return s.record(span, "delete_project", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.record(span, "delete_project",
			errors.New(errors.CodeStorageError, "store is closed"))
	}
	prefix := cleaned + "/"
	removed := false
	for key := range s.entries {
		if key == cleaned || strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed = true
		}
	}
	if removed {
		s.markDirtyLocked()
	}
	s.mu.Unlock()

	return s.record(span, "delete_project", nil)
}

// CopyFile 复制文件；src/dst 为含项目根的存储相对路径
func (s *KVStore) CopyFile(ctx context.Context, src, dst string) error {
	ctx, span := kvTracer.Start(ctx, "kv.CopyFile",
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

// ListProjects 顶层键即项目根
func (s *KVStore) ListProjects(ctx context.Context) ([]string, error) {
	_, span := kvTracer.Start(ctx, "kv.ListProjects")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0)
	for key, entry := range s.entries {
		if !strings.Contains(key, "/") && entry.Kind == entity.EntryKindDirectory {
			names = append(names, key)
		}
	}
	return names, s.record(span, "list_projects", nil)
}

// Flush 取消挂起的防抖并立即持久化
// 后台持久化失败后内存状态仍为权威，失败在此处向调用方暴露
func (s *KVStore) Flush(ctx context.Context) error {
	_, span := kvTracer.Start(ctx, "kv.Flush")
	defer span.End()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty && s.flushErr == nil {
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	data, err := encodeSnapshot(s.cloneEntriesLocked())
	s.mu.Unlock()
	if err != nil {
		return s.recordFlush(span, err)
	}

	if err := s.persist.Save(ctx, data); err != nil {
		err = errors.Wrap(err, errors.CodePersistenceError, "snapshot flush failed")
		s.mu.Lock()
		s.flushErr = err
		s.mu.Unlock()
		return s.recordFlush(span, err)
	}

	s.mu.Lock()
	// Save 期间落下的写入保持脏标记，留待下一次持久化
	if s.gen == gen {
		s.dirty = false
	}
	s.flushErr = nil
	s.mu.Unlock()
	return s.recordFlush(span, nil)
}

// Close 关闭存储，保证关闭前完成最后一次持久化
func (s *KVStore) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Flush(ctx)
}

// markDirtyLocked 标记有未持久化的变更并重置防抖定时器，调用方需持锁
// gen 随每次变更递增，持久化完成后仅当期间无新变更才清除脏标记
func (s *KVStore) markDirtyLocked() {
	s.dirty = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.backgroundFlush)
}

// backgroundFlush 防抖到期后的快照持久化
// 失败不吞掉：错误被保留，由下一次显式 Flush 暴露，内存状态保持权威
func (s *KVStore) backgroundFlush() {
	start := time.Now()

	s.mu.Lock()
	if !s.dirty || s.closed {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	data, err := encodeSnapshot(s.cloneEntriesLocked())
	if err != nil {
		s.flushErr = err
		s.mu.Unlock()
		metrics.FileStoreFlushTotal.WithLabelValues("error").Inc()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	saveErr := s.persist.Save(ctx, data)

	s.mu.Lock()
	if saveErr != nil {
		s.flushErr = errors.Wrap(saveErr, errors.CodePersistenceError, "snapshot flush failed")
	} else {
		if s.gen == gen {
			s.dirty = false
		}
		s.flushErr = nil
	}
	s.mu.Unlock()

	status := "ok"
	if saveErr != nil {
		status = "error"
	}
	metrics.FileStoreFlushTotal.WithLabelValues(status).Inc()
	metrics.FileStoreFlushDuration.Observe(time.Since(start).Seconds())
}

// ensureDir 确保目录条目存在，已存在时为空操作；键已被文件占用时报错
func (s *KVStore) ensureDir(key string) error {
	if existing, ok := s.entries[key]; ok {
		if existing.Kind != entity.EntryKindDirectory {
			return errors.New(errors.CodeStorageError, "path exists as a file").WithDetail(key)
		}
		return nil
	}
	s.entries[key] = snapshotEntry{
		Kind:       entity.EntryKindDirectory,
		ModifiedAt: time.Now(),
	}
	return nil
}

// cloneEntriesLocked 复制映射以便在锁外序列化，调用方需持锁
func (s *KVStore) cloneEntriesLocked() map[string]snapshotEntry {
	cp := make(map[string]snapshotEntry, len(s.entries))
	for k, v := range s.entries {
		cp[k] = v
	}
	return cp
}

// fileKey 将 (root, rel) 组合为规范化的存储键
func (s *KVStore) fileKey(root, relPath string) (string, error) {
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
	return cleanedRoot + "/" + cleanedRel, nil
}

// record 统一记录指标与 span 错误
func (s *KVStore) record(span trace.Span, op string, err error) error {
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	metrics.FileStoreOpsTotal.WithLabelValues("kv", op, status).Inc()
	return err
}

// recordFlush 记录显式 Flush 的指标与 span 错误
func (s *KVStore) recordFlush(span trace.Span, err error) error {
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	metrics.FileStoreFlushTotal.WithLabelValues(status).Inc()
	return err
}

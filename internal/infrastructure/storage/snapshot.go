// Package storage 提供项目文件存储的两种可互换实现
package storage

import (
	"context"
	"encoding/json"
	"time"

	"appforge-api/internal/domain/entity"
	"appforge-api/pkg/errors"
)

// snapshotVersion 快照格式版本，格式演进时递增
const snapshotVersion = 1

// SnapshotStore 平面映射后端的快照持久化端口
// 实现方在单一众所周知的存储键下保存整个序列化映射
type SnapshotStore interface {
	// Load 加载快照；快照不存在时返回 (nil, false, nil)
	Load(ctx context.Context) ([]byte, bool, error)

	// Save 保存快照
	Save(ctx context.Context, data []byte) error
}

// snapshotEntry 快照中的单个条目
type snapshotEntry struct {
	Kind       entity.EntryKind `json:"kind"`
	Content    string           `json:"content,omitempty"`
	Size       int64            `json:"size"`
	ModifiedAt time.Time        `json:"modified_at"`
}

// snapshot 持久化的完整映射，键为规范化的存储相对路径
type snapshot struct {
	Version int                      `json:"version"`
	Entries map[string]snapshotEntry `json:"entries"`
}

// encodeSnapshot 序列化当前映射
func encodeSnapshot(entries map[string]snapshotEntry) ([]byte, error) {
	data, err := json.Marshal(snapshot{Version: snapshotVersion, Entries: entries})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePersistenceError, "failed to encode snapshot")
	}
	return data, nil
}

// decodeSnapshot 反序列化快照；未知版本视为持久化错误
func decodeSnapshot(data []byte) (map[string]snapshotEntry, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, errors.CodePersistenceError, "failed to decode snapshot")
	}
	if snap.Version != snapshotVersion {
		return nil, errors.New(errors.CodePersistenceError, "unsupported snapshot version")
	}
	if snap.Entries == nil {
		snap.Entries = make(map[string]snapshotEntry)
	}
	return snap.Entries, nil
}

// Package redis 提供 Redis 快照持久化与限流实现
package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"appforge-api/internal/infrastructure/storage"
)

// SnapshotStore 将整个平面映射快照保存在单一众所周知的键下
type SnapshotStore struct {
	client *Client
	key    string
	group  singleflight.Group
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore 创建快照持久化存储
func NewSnapshotStore(client *Client, key string) *SnapshotStore {
	return &SnapshotStore{
		client: client,
		key:    key,
	}
}

// Load 加载快照；键不存在时返回 (nil, false, nil)
// 并发加载通过 singleflight 合并为一次 Redis 往返
func (s *SnapshotStore) Load(ctx context.Context) ([]byte, bool, error) {
	ctx, span := tracer.Start(ctx, "snapshot.Load",
		trace.WithAttributes(attribute.String("snapshot.key", s.key)))
	defer span.End()

	result, err, _ := s.group.Do(s.key, func() (interface{}, error) {
		return s.client.rdb.Get(ctx, s.key).Bytes()
	})
	if err != nil {
		if err == goredis.Nil {
			span.SetAttributes(attribute.Bool("snapshot.exists", false))
			return nil, false, nil
		}
		span.RecordError(err)
		return nil, false, err
	}

	span.SetAttributes(attribute.Bool("snapshot.exists", true))
	return result.([]byte), true, nil
}

// Save 保存快照，无过期时间
func (s *SnapshotStore) Save(ctx context.Context, data []byte) error {
	ctx, span := tracer.Start(ctx, "snapshot.Save",
		trace.WithAttributes(
			attribute.String("snapshot.key", s.key),
			attribute.Int("snapshot.size_bytes", len(data)),
		))
	defer span.End()

	if err := s.client.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

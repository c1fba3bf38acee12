package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge-api/internal/domain/entity"
)

func TestBroadcasterPublishSubscribe(t *testing.T) {
	b := NewBroadcaster()

	ch := b.Subscribe()
	assert.Equal(t, 1, b.Count())

	b.Publish(entity.GenerationProgress{RunID: "r1", Phase: entity.PhasePlanning})

	event := <-ch
	assert.Equal(t, "r1", event.RunID)
	assert.Equal(t, entity.PhasePlanning, event.Phase)

	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.Count())

	// 通道已关闭
	_, ok := <-ch
	assert.False(t, ok)
}

func TestBroadcasterDropsOnSlowSubscriber(t *testing.T) {
	b := NewBroadcaster()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// 超出缓冲的事件被丢弃而不是阻塞发布方
	for i := 0; i < 200; i++ {
		b.Publish(entity.GenerationProgress{RunID: "r1", Phase: entity.PhaseExecution})
	}

	require.Equal(t, 64, len(ch))
}

func TestBroadcasterSnapshotIsolation(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	progress := entity.NewGenerationProgress("r1")
	progress.CompleteFile("a.ts")
	b.Publish(progress.Snapshot())

	// 发布后继续修改原进度不影响已发布的快照
	progress.CompleteFile("b.ts")

	event := <-ch
	assert.Equal(t, []string{"a.ts"}, event.CompletedFiles)
}

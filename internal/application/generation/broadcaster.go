package generation

import (
	"sync"

	"appforge-api/internal/domain/entity"
	"appforge-api/pkg/metrics"
)

// Broadcaster 进度事件广播器
// 编排器在每次阶段/文件变迁时发布一次快照；订阅者各持一条缓冲通道
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan entity.GenerationProgress]struct{}
}

// NewBroadcaster 创建进度广播器
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan entity.GenerationProgress]struct{}),
	}
}

// Subscribe 注册订阅者并返回其事件通道，用完必须调用 Unsubscribe
func (b *Broadcaster) Subscribe() chan entity.GenerationProgress {
	ch := make(chan entity.GenerationProgress, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	metrics.ProgressSubscribers.Set(float64(b.Count()))
	return ch
}

// Unsubscribe 移除订阅者并关闭其通道
func (b *Broadcaster) Unsubscribe(ch chan entity.GenerationProgress) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	close(ch)
	b.mu.Unlock()
	metrics.ProgressSubscribers.Set(float64(b.Count()))
}

// Publish 向所有订阅者发送事件，非阻塞：慢消费者丢弃事件
func (b *Broadcaster) Publish(event entity.GenerationProgress) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// 慢消费者，丢弃
		}
	}
}

// Count 当前订阅者数量
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

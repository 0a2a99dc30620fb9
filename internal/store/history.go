package store

import (
	"sync"

	"wisefido-vision/internal/models"
)

// History 按源保存最近事件汇总的有界历史
// 写入方为该源的监测循环，读取方为查询接口，必须串行化访问
type History struct {
	mu    sync.RWMutex
	limit int
	data  map[string][]models.EventSummary
}

// NewHistory 创建事件历史存储
// limit 为每个源保留的最大条数（FIFO 淘汰）
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 10
	}
	return &History{
		limit: limit,
		data:  make(map[string][]models.EventSummary),
	}
}

// Append 追加一条事件汇总，超出上限时淘汰最旧的
func (h *History) Append(sourceID string, summary models.EventSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	events := append(h.data[sourceID], summary)
	if len(events) > h.limit {
		events = events[len(events)-h.limit:]
	}
	h.data[sourceID] = events
}

// Snapshot 返回某个源当前历史的拷贝
// 未知源返回空切片，不报错
func (h *History) Snapshot(sourceID string) []models.EventSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	events := h.data[sourceID]
	out := make([]models.EventSummary, len(events))
	copy(out, events)
	return out
}

// TotalEvents 所有源的事件总数（健康检查用）
func (h *History) TotalEvents() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, events := range h.data {
		total += len(events)
	}
	return total
}

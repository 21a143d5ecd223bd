package services

import (
	"sync"

	"agentflow/pkg/models"
)

// Hub fans stored execution snapshots out to watchers in this process.
// Each subscription holds only the latest snapshot: a slow watcher skips
// intermediate states but always sees the newest one.
type Hub struct {
	mu   sync.Mutex
	subs map[int64]map[chan *models.Execution]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[chan *models.Execution]struct{})}
}

// Subscribe registers interest in one execution. The returned function
// cancels the subscription and closes the channel.
func (h *Hub) Subscribe(executionID int64) (<-chan *models.Execution, func()) {
	ch := make(chan *models.Execution, 1)

	h.mu.Lock()
	if h.subs[executionID] == nil {
		h.subs[executionID] = make(map[chan *models.Execution]struct{})
	}
	h.subs[executionID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[executionID], ch)
			if len(h.subs[executionID]) == 0 {
				delete(h.subs, executionID)
			}
			close(ch)
		})
	}
}

// Publish delivers a snapshot to every subscriber of its execution without blocking.
func (h *Hub) Publish(e *models.Execution) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[e.ID] {
		select {
		case <-ch:
		default:
		}
		ch <- e.Clone()
	}
}

package memory

import (
	"context"
	"sync"

	"arithmetic-practice-service/internal/domain"
)

// HistoryLog is an append-only in-memory archive of finished sessions.
type HistoryLog struct {
	mu      sync.RWMutex
	records []domain.HistoryRecord
}

func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

func (h *HistoryLog) Append(_ context.Context, record domain.HistoryRecord) error {
	h.mu.Lock()
	h.records = append(h.records, record.Clone())
	h.mu.Unlock()
	return nil
}

func (h *HistoryLog) List(_ context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.HistoryRecord, 0, len(h.records))
	for _, rec := range h.records {
		if filter.Match(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

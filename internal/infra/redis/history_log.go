package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"arithmetic-practice-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const historyListKey = "practice:history"

// HistoryLog appends finished sessions to a Redis list:
//
//	RPUSH practice:history {record json}
type HistoryLog struct {
	client *redis.Client
}

func NewHistoryLog(client *redis.Client) *HistoryLog {
	return &HistoryLog{client: client}
}

func (h *HistoryLog) Append(ctx context.Context, record domain.HistoryRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	if err := h.client.RPush(ctx, historyListKey, payload).Err(); err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

func (h *HistoryLog) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	raw, err := h.client.LRange(ctx, historyListKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]domain.HistoryRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.HistoryRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode history record: %w", err)
		}
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

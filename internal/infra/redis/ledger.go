package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"arithmetic-practice-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// WrongProblemLedger persists missed problems in Redis, one entry per problem text.
// Layout:
//
//	HSET practice:wrong:entries {text} {entry json}
//	HSET practice:wrong:ids     {id}   {text}
//	ZADD practice:wrong:order   {seq}  {text}
//
// Upserts are serialized by a process-local mutex; run a single writer instance.
type WrongProblemLedger struct {
	client *redis.Client
	newID  func() string
	mu     sync.Mutex
}

const (
	ledgerEntriesKey = "practice:wrong:entries"
	ledgerIDsKey     = "practice:wrong:ids"
	ledgerOrderKey   = "practice:wrong:order"
	ledgerSeqKey     = "practice:wrong:seq"
)

func NewWrongProblemLedger(client *redis.Client) *WrongProblemLedger {
	return &WrongProblemLedger{client: client, newID: uuid.NewString}
}

func (l *WrongProblemLedger) Record(ctx context.Context, problem domain.Problem, wrongAnswer float64, at time.Time) (domain.WrongProblemEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	raw, err := l.client.HGet(ctx, ledgerEntriesKey, problem.Text).Bytes()
	switch {
	case err == nil:
		var entry domain.WrongProblemEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return domain.WrongProblemEntry{}, fmt.Errorf("decode ledger entry: %w", err)
		}
		entry.WrongCount++
		entry.LastWrongDate = at
		if err := l.save(ctx, entry, false); err != nil {
			return domain.WrongProblemEntry{}, err
		}
		return entry, nil
	case errors.Is(err, redis.Nil):
		entry := domain.WrongProblemEntry{
			ID:            l.newID(),
			Problem:       problem,
			WrongAnswer:   wrongAnswer,
			WrongCount:    1,
			LastWrongDate: at,
		}
		if err := l.save(ctx, entry, true); err != nil {
			return domain.WrongProblemEntry{}, err
		}
		return entry, nil
	default:
		return domain.WrongProblemEntry{}, fmt.Errorf("load ledger entry: %w", err)
	}
}

func (l *WrongProblemLedger) save(ctx context.Context, entry domain.WrongProblemEntry, isNew bool) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	var seq int64
	if isNew {
		if seq, err = l.client.Incr(ctx, ledgerSeqKey).Result(); err != nil {
			return fmt.Errorf("allocate ledger position: %w", err)
		}
	}
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		text := entry.Problem.Text
		pipe.HSet(ctx, ledgerEntriesKey, text, payload)
		if isNew {
			pipe.HSet(ctx, ledgerIDsKey, entry.ID, text)
			pipe.ZAdd(ctx, ledgerOrderKey, redis.Z{Score: float64(seq), Member: text})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store ledger entry: %w", err)
	}
	return nil
}

func (l *WrongProblemLedger) List(ctx context.Context, filter domain.WrongProblemFilter) ([]domain.WrongProblemEntry, error) {
	texts, err := l.client.ZRange(ctx, ledgerOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list ledger order: %w", err)
	}
	if len(texts) == 0 {
		return []domain.WrongProblemEntry{}, nil
	}
	values, err := l.client.HMGet(ctx, ledgerEntriesKey, texts...).Result()
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	out := make([]domain.WrongProblemEntry, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// removed between ZRANGE and HMGET
			continue
		}
		var entry domain.WrongProblemEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			return nil, fmt.Errorf("decode ledger entry: %w", err)
		}
		if filter.Match(entry) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (l *WrongProblemLedger) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	text, err := l.client.HGet(ctx, ledgerIDsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup ledger entry: %w", err)
	}
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, ledgerEntriesKey, text)
		pipe.HDel(ctx, ledgerIDsKey, id)
		pipe.ZRem(ctx, ledgerOrderKey, text)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove ledger entry: %w", err)
	}
	return nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"arithmetic-practice-service/internal/app"
	"arithmetic-practice-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const historyVersionKey = "practice:history:version"

// CachedHistoryLog caches history queries in Redis and falls back to a backing log on miss.
// Query results are stored as: SET practice:history:v{version}:{filter} {records json}
// Append bumps the version, so stale entries are simply never read again and expire.
type CachedHistoryLog struct {
	client  *redis.Client
	backing app.HistoryLog
	ttl     time.Duration
	sf      singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCachedHistoryLog(client *redis.Client, backing app.HistoryLog, ttl time.Duration) *CachedHistoryLog {
	return &CachedHistoryLog{
		client:  client,
		backing: backing,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedHistoryLog) Append(ctx context.Context, record domain.HistoryRecord) error {
	if err := c.backing.Append(ctx, record); err != nil {
		return err
	}
	if err := c.client.Incr(ctx, historyVersionKey).Err(); err != nil {
		log.Printf("invalidate history cache: %v", err)
	}
	return nil
}

func (c *CachedHistoryLog) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	version, err := c.client.Get(ctx, historyVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		// Redis unavailable; serve from the backing log.
		return c.backing.List(ctx, filter)
	}
	key := c.queryKey(version, filter)

	if records, ok := c.cached(ctx, key); ok {
		return records, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if records, ok := c.cached(ctx, key); ok {
			return records, nil
		}
		records, err := c.backing.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(records); err == nil {
			_ = c.client.Set(ctx, key, payload, c.ttlWithJitter()).Err()
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}

	shared := result.([]domain.HistoryRecord)
	out := make([]domain.HistoryRecord, len(shared))
	for i, rec := range shared {
		out[i] = rec.Clone()
	}
	return out, nil
}

func (c *CachedHistoryLog) cached(ctx context.Context, key string) ([]domain.HistoryRecord, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var records []domain.HistoryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false
	}
	return records, true
}

func (c *CachedHistoryLog) queryKey(version int64, filter domain.HistoryFilter) string {
	return fmt.Sprintf("practice:history:v%d:g%d:%s:%s", version, filter.Grade, bound(filter.From), bound(filter.To))
}

func bound(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

func (c *CachedHistoryLog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

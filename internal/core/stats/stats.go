// Package stats counts download outcomes for the /api/stats endpoint.
package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the counter state at one point in time
type Snapshot struct {
	Total      int64            `json:"total"`
	Success    int64            `json:"success"`
	Failure    int64            `json:"failure"`
	CacheHits  int64            `json:"cacheHits"`
	ByPlatform map[string]int64 `json:"byPlatform"`
	ByError    map[string]int64 `json:"byError"`
}

// Event is one finished download request. ErrorCode is empty on success.
type Event struct {
	Platform  string
	ErrorCode string
	Cached    bool
}

type Recorder interface {
	Record(ctx context.Context, ev Event) error
	Snapshot(ctx context.Context) (Snapshot, error)
}

const (
	fieldTotal     = "total"
	fieldSuccess   = "success"
	fieldFailure   = "failure"
	fieldCacheHits = "cache_hits"
	platformPrefix = "platform:"
	errorPrefix    = "error:"
)

func fields(ev Event) []string {
	out := []string{fieldTotal, platformPrefix + ev.Platform}
	if ev.ErrorCode == "" {
		out = append(out, fieldSuccess)
	} else {
		out = append(out, fieldFailure, errorPrefix+ev.ErrorCode)
	}
	if ev.Cached {
		out = append(out, fieldCacheHits)
	}
	return out
}

func snapshotFrom(counts map[string]int64) Snapshot {
	s := Snapshot{
		Total:      counts[fieldTotal],
		Success:    counts[fieldSuccess],
		Failure:    counts[fieldFailure],
		CacheHits:  counts[fieldCacheHits],
		ByPlatform: map[string]int64{},
		ByError:    map[string]int64{},
	}
	for k, v := range counts {
		switch {
		case strings.HasPrefix(k, platformPrefix):
			s.ByPlatform[strings.TrimPrefix(k, platformPrefix)] = v
		case strings.HasPrefix(k, errorPrefix):
			s.ByError[strings.TrimPrefix(k, errorPrefix)] = v
		}
	}
	return s
}

// MemoryRecorder keeps counters in process
type MemoryRecorder struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counts: make(map[string]int64)}
}

func (m *MemoryRecorder) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields(ev) {
		m.counts[f]++
	}
	return nil
}

func (m *MemoryRecorder) Snapshot(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshotFrom(m.counts), nil
}

// RedisRecorder keeps counters in a single redis hash so several gateway
// instances share them
type RedisRecorder struct {
	redis *redis.Client
	key   string
}

func NewRedisRecorder(client *redis.Client) *RedisRecorder {
	return &RedisRecorder{redis: client, key: "socialdl:stats"}
}

func (r *RedisRecorder) Record(ctx context.Context, ev Event) error {
	pipe := r.redis.TxPipeline()
	for _, f := range fields(ev) {
		pipe.HIncrBy(ctx, r.key, f, 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hincrby failed: %w", err)
	}
	return nil
}

func (r *RedisRecorder) Snapshot(ctx context.Context) (Snapshot, error) {
	raw, err := r.redis.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis hgetall failed: %w", err)
	}
	counts := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		counts[k] = n
	}
	return snapshotFrom(counts), nil
}

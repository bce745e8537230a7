package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// WatermarkPrefix is the prefix for revoke watermark keys
const WatermarkPrefix = "walletauth:revoke_before:"

// Watermarks caches the revoke watermark of each user.
// Set never lowers a cached mark, so a stale fill cannot undo a newer revoke.
type Watermarks interface {
	Get(ctx context.Context, userID int64) (time.Time, bool, error)
	Set(ctx context.Context, userID int64, revokeBefore time.Time) error
	Invalidate(ctx context.Context, userID int64) error
}

func watermarkKey(userID int64) string {
	return WatermarkPrefix + strconv.FormatInt(userID, 10)
}

// raiseWatermark writes ARGV[1] with a PX of ARGV[2] unless the key already holds a later mark
var raiseWatermark = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]))
local mark = tonumber(ARGV[1])
if cur and cur > mark then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// RedisWatermarks stores watermarks in redis as unix nanoseconds
type RedisWatermarks struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisWatermarks creates a redis backed watermark cache
func NewRedisWatermarks(client *redis.Client, ttl time.Duration) *RedisWatermarks {
	return &RedisWatermarks{client: client, ttl: ttl}
}

func (w *RedisWatermarks) Get(ctx context.Context, userID int64) (time.Time, bool, error) {
	val, err := w.client.Get(ctx, watermarkKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read watermark: %w", err)
	}
	slog.Debug("Watermark cache hit from Redis", "user_id", userID)
	return time.Unix(0, val).UTC(), true, nil
}

func (w *RedisWatermarks) Set(ctx context.Context, userID int64, revokeBefore time.Time) error {
	err := raiseWatermark.Run(ctx, w.client, []string{watermarkKey(userID)}, revokeBefore.UnixNano(), w.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("failed to write watermark: %w", err)
	}
	return nil
}

func (w *RedisWatermarks) Invalidate(ctx context.Context, userID int64) error {
	return w.client.Del(ctx, watermarkKey(userID)).Err()
}

// MemoryWatermarks keeps watermarks in process, used when redis is disabled.
// Marks are not shared between processes, so it only suits a single instance.
type MemoryWatermarks struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewMemoryWatermarks creates an in-process watermark cache
func NewMemoryWatermarks(ttl time.Duration) *MemoryWatermarks {
	return &MemoryWatermarks{c: gocache.New(ttl, time.Minute)}
}

func (m *MemoryWatermarks) Get(_ context.Context, userID int64) (time.Time, bool, error) {
	v, ok := m.c.Get(watermarkKey(userID))
	if !ok {
		return time.Time{}, false, nil
	}
	t, ok := v.(time.Time)
	return t, ok, nil
}

func (m *MemoryWatermarks) Set(_ context.Context, userID int64, revokeBefore time.Time) error {
	key := watermarkKey(userID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.c.Get(key); ok {
		if cur, ok := v.(time.Time); ok && cur.After(revokeBefore) {
			return nil
		}
	}
	m.c.SetDefault(key, revokeBefore)
	return nil
}

func (m *MemoryWatermarks) Invalidate(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Delete(watermarkKey(userID))
	return nil
}

package engagement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LikedSet caches which items a user has liked. It is advisory and can
// always be rebuilt from the Store.
type LikedSet interface {
	Has(ctx context.Context, uid, itemID string) (bool, error)
	Add(ctx context.Context, uid string, itemIDs ...string) error
	Remove(ctx context.Context, uid, itemID string) error
}

type MemoryLikedSet struct {
	mu    sync.RWMutex
	liked map[string]map[string]struct{}
}

func NewMemoryLikedSet() *MemoryLikedSet {
	return &MemoryLikedSet{liked: map[string]map[string]struct{}{}}
}

func (m *MemoryLikedSet) Has(_ context.Context, uid, itemID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.liked[uid][itemID]
	return ok, nil
}

func (m *MemoryLikedSet) Add(_ context.Context, uid string, itemIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.liked[uid]
	if !ok {
		set = map[string]struct{}{}
		m.liked[uid] = set
	}
	for _, id := range itemIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (m *MemoryLikedSet) Remove(_ context.Context, uid, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.liked[uid], itemID)
	return nil
}

// RedisLikedSet shares the cache across API instances, one set per user.
type RedisLikedSet struct {
	rdb *redis.Client
	ttl time.Duration
}

const likedSetTTL = 24 * time.Hour

func NewRedisLikedSet(rdb *redis.Client) *RedisLikedSet {
	return &RedisLikedSet{rdb: rdb, ttl: likedSetTTL}
}

func LikedKey(uid string) string {
	return "engagement:liked:" + uid
}

func (r *RedisLikedSet) Has(ctx context.Context, uid, itemID string) (bool, error) {
	ok, err := r.rdb.SIsMember(ctx, LikedKey(uid), itemID).Result()
	if err != nil {
		return false, fmt.Errorf("liked set lookup: %w", err)
	}
	return ok, nil
}

func (r *RedisLikedSet) Add(ctx context.Context, uid string, itemIDs ...string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(itemIDs))
	for i, id := range itemIDs {
		members[i] = id
	}
	key := LikedKey(uid)
	pipe := r.rdb.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("liked set add: %w", err)
	}
	return nil
}

func (r *RedisLikedSet) Remove(ctx context.Context, uid, itemID string) error {
	if err := r.rdb.SRem(ctx, LikedKey(uid), itemID).Err(); err != nil {
		return fmt.Errorf("liked set remove: %w", err)
	}
	return nil
}

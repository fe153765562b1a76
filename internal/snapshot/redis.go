package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "gdchat:conv:"
	redisIndexKey  = "gdchat:conv:index"
)

// RedisStore keeps conversations in Redis so multiple agent consoles
// share the same snapshot state. Per-entry TTL handles age eviction;
// a sorted-set index scored by save time handles the cap.
type RedisStore struct {
	rdb        *redis.Client
	maxAge     time.Duration
	maxEntries int
	now        func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisMaxAge overrides the retention window.
func WithRedisMaxAge(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.maxAge = d }
}

// WithRedisMaxEntries overrides the entry cap.
func WithRedisMaxEntries(n int) RedisOption {
	return func(s *RedisStore) { s.maxEntries = n }
}

// WithRedisNow overrides the time source, for tests.
func WithRedisNow(now func() time.Time) RedisOption {
	return func(s *RedisStore) { s.now = now }
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:        rdb,
		maxAge:     DefaultMaxAge,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores a conversation with the retention TTL and trims the
// index to the entry cap, dropping the oldest conversations.
func (s *RedisStore) Save(ctx context.Context, conv Conversation) error {
	if strings.TrimSpace(conv.RoomID) == "" {
		return errors.New("snapshot: empty room id")
	}
	conv.SavedAt = s.now()

	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	key := redisKeyPrefix + conv.RoomID
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, data, s.maxAge)
	pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(conv.SavedAt.Unix()), Member: conv.RoomID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return s.enforceCap(ctx)
}

// Load returns the cached conversation for a room. The second return
// is false on miss; expired entries disappear via TTL.
func (s *RedisStore) Load(ctx context.Context, roomID string) (Conversation, bool, error) {
	data, err := s.rdb.Get(ctx, redisKeyPrefix+roomID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Conversation{}, false, nil
		}
		return Conversation{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return Conversation{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return conv, true, nil
}

// Delete removes one conversation.
func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, redisKeyPrefix+roomID)
	pipe.ZRem(ctx, redisIndexKey, roomID)
	_, err := pipe.Exec(ctx)
	return err
}

// Sweep removes index entries whose conversations have aged out and
// reports how many were removed. The values themselves expire via TTL;
// this keeps the index from accumulating dead members.
func (s *RedisStore) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.maxAge).Unix()
	stale, err := s.rdb.ZRangeByScore(ctx, redisIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("sweep snapshots: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	pipe := s.rdb.TxPipeline()
	for _, roomID := range stale {
		pipe.Del(ctx, redisKeyPrefix+roomID)
	}
	pipe.ZRemRangeByScore(ctx, redisIndexKey, "-inf", fmt.Sprintf("%d", cutoff))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("sweep snapshots: %w", err)
	}
	return len(stale), nil
}

// List returns all live conversations, newest first.
func (s *RedisStore) List(ctx context.Context) ([]Conversation, error) {
	roomIDs, err := s.rdb.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var out []Conversation
	for _, roomID := range roomIDs {
		conv, ok, err := s.Load(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (s *RedisStore) enforceCap(ctx context.Context) error {
	if s.maxEntries <= 0 {
		return nil
	}
	count, err := s.rdb.ZCard(ctx, redisIndexKey).Result()
	if err != nil || count <= int64(s.maxEntries) {
		return err
	}
	excess := count - int64(s.maxEntries)
	oldest, err := s.rdb.ZRange(ctx, redisIndexKey, 0, excess-1).Result()
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, roomID := range oldest {
		pipe.Del(ctx, redisKeyPrefix+roomID)
	}
	pipe.ZRemRangeByRank(ctx, redisIndexKey, 0, excess-1)
	_, err = pipe.Exec(ctx)
	return err
}

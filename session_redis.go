package assistant

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/config"
)

// RedisSessionStore persists sessions in Redis.
// Data model:
//   - key prefix+"session:"+id => JSON(Session) with TTL
//   - key prefix+"idx" => sorted set of IDs scored by last activity
type RedisSessionStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStore(cfg config.SessionConfig) (*RedisSessionStore, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisSessionStore{rdb: rdb, prefix: "assistant:sess:", ttl: ttl}, nil
}

func (s *RedisSessionStore) idxKey() string           { return s.prefix + "idx" }
func (s *RedisSessionStore) sessKey(id string) string { return s.prefix + "session:" + id }

func (s *RedisSessionStore) save(ctx context.Context, sess *Session, touch time.Time) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.sessKey(sess.ID), b, s.ttl)
	pipe.ZAdd(ctx, s.idxKey(), &redis.Z{Score: float64(touch.Unix()), Member: sess.ID})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) Create(role string) *Session {
	sess := &Session{ID: newID(), Role: role, CreatedAt: time.Now(), Exchanges: []Exchange{}}
	if err := s.save(context.Background(), sess, sess.CreatedAt); err != nil {
		logger.Warnf("session: redis create failed: %v", err)
	}
	return sess
}

func (s *RedisSessionStore) Get(id string) (*Session, bool) {
	b, err := s.rdb.Get(context.Background(), s.sessKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		logger.Warnf("session: corrupt record for %s: %v", id, err)
		return nil, false
	}
	return &sess, true
}

func (s *RedisSessionStore) Delete(id string) bool {
	ctx := context.Background()
	pipe := s.rdb.TxPipeline()
	del := pipe.Del(ctx, s.sessKey(id))
	pipe.ZRem(ctx, s.idxKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false
	}
	return del.Val() > 0
}

func (s *RedisSessionStore) List() []*Session {
	return s.ListRange(0, 100)
}

func (s *RedisSessionStore) AddExchange(id string, ex Exchange) bool {
	sess, ok := s.Get(id)
	if !ok {
		return false
	}
	sess.Exchanges = append(sess.Exchanges, ex)
	if len(sess.Exchanges) > MaxRetainedRounds {
		sess.Exchanges = sess.Exchanges[len(sess.Exchanges)-MaxRetainedRounds:]
	}
	if err := s.save(context.Background(), sess, time.Now()); err != nil {
		logger.Warnf("session: redis update failed for %s: %v", id, err)
		return false
	}
	return true
}

// ListRange returns sessions from offset with limit, by recency desc.
func (s *RedisSessionStore) ListRange(offset, limit int) []*Session {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return []*Session{}
	}
	ctx := context.Background()
	ids, err := s.rdb.ZRevRange(ctx, s.idxKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil || len(ids) == 0 {
		return []*Session{}
	}
	res := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if sess, ok := s.Get(id); ok {
			res = append(res, sess)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res
}

// Clean keeps only the max most recent sessions.
func (s *RedisSessionStore) Clean(max int) error {
	if max <= 0 {
		return nil
	}
	ctx := context.Background()
	total, err := s.rdb.ZCard(ctx, s.idxKey()).Result()
	if err != nil || total <= int64(max) {
		return err
	}
	stale, err := s.rdb.ZRange(ctx, s.idxKey(), 0, total-int64(max)-1).Result()
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, id := range stale {
		pipe.Del(ctx, s.sessKey(id))
		pipe.ZRem(ctx, s.idxKey(), id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// NewSessionStore builds the store named by config, falling back to the
// in-memory store when Redis is unreachable.
func NewSessionStore(cfg config.SessionConfig) SessionStore {
	if cfg.Store == "redis" {
		store, err := NewRedisSessionStore(cfg)
		if err == nil {
			return store
		}
		logger.Warnf("session: redis unavailable (%v), using in-memory store", err)
	}
	return NewMemSessionStore()
}

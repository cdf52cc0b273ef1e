package sessions

import (
	"context"
	"time"

	"novelchat/apperrors"
	"novelchat/pkg/breaker"
	"novelchat/pkg/logger"
	"novelchat/pkg/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// hashClient is the part of *redis.Client the store uses.
type hashClient interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps sessions in the hash session:<username> with a TTL. A
// local LRU answers while redis is unreachable or the breaker is open.
type RedisStore struct {
	rdb   hashClient
	cb    *gobreaker.CircuitBreaker
	local *MemoryStore
	ttl   time.Duration
	log   *logger.Logger
}

func NewRedisStore(rdb hashClient, ttl time.Duration, cacheSize int) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		cb: breaker.New(breaker.Config{
			Name:        "redis-sessions",
			MaxRequests: 5,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			Threshold:   0.5,
			MinRequests: 5,
		}),
		local: NewMemoryStore(cacheSize, ttl),
		ttl:   ttl,
		log:   logger.WithComponent("sessions").WithField("backend", "redis"),
	}
}

func sessionKey(username string) string {
	return "session:" + username
}

// Save always lands in the local cache; a redis failure is logged and
// returned so the caller can decide whether it matters.
func (r *RedisStore) Save(ctx context.Context, s Session) error {
	r.local.put(s)

	key := sessionKey(s.Username)
	_, err := breaker.ExecuteCtx(ctx, r.cb, func() (any, error) {
		if err := r.rdb.HSet(ctx, key, s.Marshal()).Err(); err != nil {
			return nil, err
		}
		return nil, r.rdb.Expire(ctx, key, r.ttl).Err()
	})
	metrics.RecordSessionStoreOp("redis", "save", err == nil)

	if err != nil {
		r.log.WithFields(map[string]any{
			"username": s.Username,
			"error":    err.Error(),
		}).Warn("Session persistence to Redis failed (session remains in local cache)")
		return apperrors.NewSessionError("session_save", s.Username, err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, username string) (Session, error) {
	result, err := breaker.ExecuteCtx(ctx, r.cb, func() (any, error) {
		return r.rdb.HGetAll(ctx, sessionKey(username)).Result()
	})
	metrics.RecordSessionStoreOp("redis", "load", err == nil)

	if err != nil {
		r.log.WithField("error", err.Error()).Warn("Redis unavailable: checking local session cache")
		return r.local.Load(ctx, username)
	}

	data := result.(map[string]string)
	if len(data) == 0 {
		return r.local.Load(ctx, username)
	}

	var s Session
	if err := s.Unmarshal(data); err != nil {
		return Session{}, apperrors.NewSessionError("session_load", username, err)
	}

	r.local.put(s)
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, username string) error {
	r.local.Delete(ctx, username)

	_, err := breaker.ExecuteCtx(ctx, r.cb, func() (any, error) {
		return nil, r.rdb.Del(ctx, sessionKey(username)).Err()
	})
	metrics.RecordSessionStoreOp("redis", "delete", err == nil)
	if err != nil {
		return apperrors.NewSessionError("session_delete", username, err)
	}
	return nil
}

// BreakerState reports the redis breaker state for diagnostics.
func (r *RedisStore) BreakerState() string {
	return r.cb.State().String()
}

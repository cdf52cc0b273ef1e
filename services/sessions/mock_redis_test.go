package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// mockRedis records calls with testify/mock and keeps hashes in memory.
type mockRedis struct {
	mock.Mock
	data map[string]map[string]string
	mu   sync.RWMutex
}

func newMockRedis() *mockRedis {
	return &mockRedis{data: make(map[string]map[string]string)}
}

func (m *mockRedis) HSet(ctx context.Context, key string, values ...any) *redis.IntCmd {
	args := m.Called(ctx, key)
	if err := args.Error(0); err != nil {
		return redis.NewIntResult(0, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	h := make(map[string]string)
	for _, v := range values {
		if fields, ok := v.(map[string]any); ok {
			for k, val := range fields {
				h[k] = fmt.Sprint(val)
			}
		}
	}
	m.data[key] = h
	return redis.NewIntResult(int64(len(h)), nil)
}

func (m *mockRedis) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	args := m.Called(ctx, key)
	if err := args.Error(0); err != nil {
		return redis.NewMapStringStringResult(nil, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.data[key]))
	for k, v := range m.data[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (m *mockRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, expiration)
	return redis.NewBoolResult(args.Error(0) == nil, args.Error(0))
}

func (m *mockRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)

	m.mu.Lock()
	for _, key := range keys {
		delete(m.data, key)
	}
	m.mu.Unlock()

	return redis.NewIntResult(int64(len(keys)), args.Error(0))
}

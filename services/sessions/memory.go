package sessions

import (
	"container/list"
	"context"
	"sync"
	"time"

	"novelchat/apperrors"
	"novelchat/pkg/metrics"
)

// Store persists sessions by username.
type Store interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context, username string) (Session, error)
	Delete(ctx context.Context, username string) error
}

// MemoryStore is a bounded LRU of sessions that expire ttl after login.
type MemoryStore struct {
	mu        sync.Mutex
	cache     map[string]*list.Element
	evictList *list.List
	capacity  int
	ttl       time.Duration
	now       func() time.Time
}

func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = 128
	}
	return &MemoryStore{
		cache:     make(map[string]*list.Element),
		evictList: list.New(),
		capacity:  capacity,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.put(s)
	metrics.RecordSessionStoreOp("memory", "save", true)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, username string) (Session, error) {
	s, ok := m.get(username)
	metrics.RecordSessionStoreOp("memory", "load", ok)
	if !ok {
		return Session{}, apperrors.NewSessionNotFound(username)
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.cache[username]; ok {
		m.evictList.Remove(elem)
		delete(m.cache, username)
	}
	metrics.RecordSessionStoreOp("memory", "delete", true)
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictList.Len()
}

func (m *MemoryStore) put(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.cache[s.Username]; ok {
		m.evictList.MoveToFront(elem)
		elem.Value = s
		return
	}

	if m.evictList.Len() >= m.capacity {
		if oldest := m.evictList.Back(); oldest != nil {
			m.evictList.Remove(oldest)
			delete(m.cache, oldest.Value.(Session).Username)
		}
	}

	m.cache[s.Username] = m.evictList.PushFront(s)
}

func (m *MemoryStore) get(username string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.cache[username]
	if !ok {
		return Session{}, false
	}

	s := elem.Value.(Session)
	if m.ttl > 0 && m.now().Sub(s.LoginTime) > m.ttl {
		m.evictList.Remove(elem)
		delete(m.cache, username)
		return Session{}, false
	}

	m.evictList.MoveToFront(elem)
	return s, true
}

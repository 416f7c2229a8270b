package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// Memory is an in-process TTL cache for single-instance deployments and
// tests. Expired entries are dropped lazily on read.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = memoryEntry{payload: payload, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.items, key)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) DelPattern(ctx context.Context, pattern string) error {
	prefix, suffix, wildcard := splitPattern(pattern)
	m.mu.Lock()
	for key := range m.items {
		if matchPattern(key, prefix, suffix, wildcard) {
			delete(m.items, key)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.items = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// splitPattern splits on the first '*'. Patterns carry at most one
// wildcard segment; without one the pattern is an exact key.
func splitPattern(pattern string) (prefix, suffix string, wildcard bool) {
	idx := strings.Index(pattern, "*")
	if idx < 0 {
		return pattern, "", false
	}
	return pattern[:idx], pattern[idx+1:], true
}

func matchPattern(key, prefix, suffix string, wildcard bool) bool {
	if !wildcard {
		return key == prefix
	}
	return len(key) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix)
}

package cache

import (
	"context"
	"sync"
	"time"
)

// Memory 进程内缓存，过期条目在读取时惰性删除
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory 创建进程内缓存
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Get 实现 Cache
func (m *Memory) Get(ctx context.Context, key string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, ErrNotFound
	}

	if expired(e, m.now()) {
		m.mu.Lock()
		// 读锁释放后可能已被重新写入
		if cur, ok := m.entries[key]; ok && expired(cur, m.now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return Entry{}, ErrNotFound
	}

	return e, nil
}

// Set 实现 Cache
func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[key] = Entry{Value: value, ExpiresAt: expiresAt(m.now(), ttl)}
	m.mu.Unlock()
	return nil
}

// Ping 实现 Cache
func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close 实现 Cache
func (m *Memory) Close() error {
	return nil
}

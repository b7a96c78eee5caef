// Package cache 提供带过期时间的键值存储抽象，用于保存 access_token。
//
// 所有实现都以阻塞、可取消的方式暴露同一组方法；需要非阻塞调用的场景
// 通过 GetAsync / SetAsync 在同一能力之上适配，不复制逻辑。
package cache

import (
	"context"
	"errors"
	"time"

	"go-wechat-svc/internal/shared"
)

//go:generate mockgen -destination=mocks/mock_cache.go -package=mocks go-wechat-svc/internal/cache Cache

var (
	// ErrNotFound 键不存在或已过期
	ErrNotFound = errors.New("cache: key not found")
	// ErrUnavailable 后端存储不可用
	ErrUnavailable = errors.New("cache: backend unavailable")
)

// Entry 缓存条目，ExpiresAt 为零值表示永不过期
type Entry struct {
	Value     string
	ExpiresAt time.Time
}

// Cache 带过期时间的键值存储，实现必须可被并发使用
type Cache interface {
	// Get 读取条目，不存在时返回 ErrNotFound
	Get(ctx context.Context, key string) (Entry, error)

	// Set 写入条目，ttl <= 0 表示不过期
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Ping 检查后端是否可用
	Ping(ctx context.Context) error

	// Close 释放后端连接
	Close() error
}

// GetAsync Get 的非阻塞形式
func GetAsync(ctx context.Context, c Cache, key string) <-chan shared.Result[Entry] {
	return shared.Async(ctx, func(ctx context.Context) (Entry, error) {
		return c.Get(ctx, key)
	})
}

// SetAsync Set 的非阻塞形式
func SetAsync(ctx context.Context, c Cache, key, value string, ttl time.Duration) <-chan shared.Result[struct{}] {
	return shared.Async(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.Set(ctx, key, value, ttl)
	})
}

func expiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(e Entry, now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

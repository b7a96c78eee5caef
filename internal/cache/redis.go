package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis 基于 Redis 的分布式缓存，多实例部署时共享同一份 access_token
type Redis struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedis 使用已创建的客户端构造缓存
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, now: time.Now}
}

// DialRedis 按地址创建 Redis 客户端
func DialRedis(addr, username, password string, db int) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})
	return NewRedis(rdb)
}

// Get 实现 Cache，GET 与 PTTL 在同一个 pipeline 中执行
func (r *Redis) Get(ctx context.Context, key string) (Entry, error) {
	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, key)
		pttl = p.PTTL(ctx, key)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("%w: redis get %s: %w", ErrUnavailable, key, err)
	}

	e := Entry{Value: get.Val()}
	// -1 表示未设置过期，-2 表示键在两条命令之间被删除
	switch ttl := pttl.Val(); {
	case ttl == -2:
		return Entry{}, ErrNotFound
	case ttl > 0:
		e.ExpiresAt = r.now().Add(ttl)
	}
	return e, nil
}

// Set 实现 Cache
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Ping 实现 Cache
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %w", ErrUnavailable, err)
	}
	return nil
}

// Close 实现 Cache
func (r *Redis) Close() error {
	return r.client.Close()
}

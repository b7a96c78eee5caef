package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-wechat-svc/internal/cache"
	"go-wechat-svc/internal/shared"
)

// RefreshWindow 距离过期不足该时长的缓存凭证视为过期，提前刷新
const RefreshWindow = 5 * time.Minute

// Manager access_token 管理接口
type Manager interface {
	// Token 返回可用的 access_token，缓存缺失或即将过期时刷新
	Token(ctx context.Context) (string, error)

	// TokenAsync Token 的非阻塞形式
	TokenAsync(ctx context.Context) <-chan shared.Result[string]

	// Refresh 无条件从 Source 获取新凭证并写入缓存
	Refresh(ctx context.Context) (string, error)
}

// managerImpl Manager 接口的实现
// 并发刷新不加锁，多个调用方同时刷新时以最后一次写入为准
type managerImpl struct {
	key    string
	appID  string
	source Source
	cache  cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewManager 创建 access_token 管理器，缓存键为 keyPrefix + "access_token:" + appID
func NewManager(appID, keyPrefix string, source Source, c cache.Cache, logger *slog.Logger) Manager {
	return &managerImpl{
		key:    CacheKey(keyPrefix, appID),
		appID:  appID,
		source: source,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// CacheKey 返回保存 appID 凭证的缓存键
func CacheKey(prefix, appID string) string {
	return prefix + "access_token:" + appID
}

// Token 读取缓存，命中且未进入刷新窗口时直接返回，不发起网络请求
func (m *managerImpl) Token(ctx context.Context) (string, error) {
	entry, err := m.cache.Get(ctx, m.key)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		m.logger.Debug("access token not cached, refreshing", "app_id", m.appID)
		return m.Refresh(ctx)
	case err != nil:
		return "", fmt.Errorf("read cached access token: %w", err)
	}

	if m.stale(entry) {
		m.logger.Debug("access token near expiry, refreshing",
			"app_id", m.appID,
			"expires_at", entry.ExpiresAt,
		)
		return m.Refresh(ctx)
	}
	return entry.Value, nil
}

// TokenAsync 在独立 goroutine 中执行 Token
func (m *managerImpl) TokenAsync(ctx context.Context) <-chan shared.Result[string] {
	return shared.Async(ctx, m.Token)
}

// Refresh 获取新凭证并以服务端返回的有效期写入缓存，失败不重试
func (m *managerImpl) Refresh(ctx context.Context) (string, error) {
	cred, err := m.source.FetchToken(ctx)
	if err != nil {
		m.logger.Error("failed to refresh access token", "app_id", m.appID, "error", err)
		if errors.Is(err, ErrRefreshFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	if err := m.cache.Set(ctx, m.key, cred.AccessToken, cred.ExpiresIn); err != nil {
		return "", fmt.Errorf("store access token: %w", err)
	}

	m.logger.Info("access token refreshed",
		"app_id", m.appID,
		"expires_in", cred.ExpiresIn,
	)
	return cred.AccessToken, nil
}

func (m *managerImpl) stale(e cache.Entry) bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return e.ExpiresAt.Sub(m.now()) < RefreshWindow
}

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);`

// SQLite 基于本地 SQLite 文件的缓存，进程重启后 access_token 仍然可用
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite 打开（必要时创建）数据库文件并初始化表结构
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// 单连接避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Get 实现 Cache
func (s *SQLite) Get(ctx context.Context, key string) (Entry, error) {
	var (
		value     string
		expiresMs int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &expiresMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("%w: sqlite get %s: %w", ErrUnavailable, key, err)
	}

	e := Entry{Value: value}
	if expiresMs > 0 {
		e.ExpiresAt = time.UnixMilli(expiresMs)
	}

	if expired(e, s.now()) {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE key = ? AND expires_at = ?`, key, expiresMs,
		); err != nil {
			return Entry{}, fmt.Errorf("%w: sqlite evict %s: %w", ErrUnavailable, key, err)
		}
		return Entry{}, ErrNotFound
	}

	return e, nil
}

// Set 实现 Cache
func (s *SQLite) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresMs int64
	if at := expiresAt(s.now(), ttl); !at.IsZero() {
		expiresMs = at.UnixMilli()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresMs,
	)
	if err != nil {
		return fmt.Errorf("%w: sqlite set %s: %w", ErrUnavailable, key, err)
	}
	return nil
}

// Ping 实现 Cache
func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: sqlite ping: %w", ErrUnavailable, err)
	}
	return nil
}

// Close 实现 Cache
func (s *SQLite) Close() error {
	return s.db.Close()
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisGetSet(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	now := time.Unix(1727186898, 0)

	r := DialRedis(mr.Addr(), "", "", 0)
	r.now = func() time.Time { return now }
	t.Cleanup(func() { r.Close() })

	_, err := r.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Set(ctx, "wx123", "token-a", 7200*time.Second))
	e, err := r.Get(ctx, "wx123")
	require.NoError(t, err)
	assert.Equal(t, "token-a", e.Value)
	assert.Equal(t, now.Add(7200*time.Second), e.ExpiresAt)

	require.NoError(t, r.Set(ctx, "forever", "v", 0))
	e, err = r.Get(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, e.ExpiresAt.IsZero())

	assert.NoError(t, r.Ping(ctx))
}

func TestRedisExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	r := DialRedis(mr.Addr(), "", "", 0)
	t.Cleanup(func() { r.Close() })

	require.NoError(t, r.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := r.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	r := DialRedis(mr.Addr(), "", "", 0)
	t.Cleanup(func() { r.Close() })

	mr.Close()

	_, err := r.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, r.Set(ctx, "k", "v", time.Minute), ErrUnavailable)
	assert.ErrorIs(t, r.Ping(ctx), ErrUnavailable)
}

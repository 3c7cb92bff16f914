package ratelimit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, path string, overrides map[string][]Window, aliases map[string]string) *Limiter {
	t.Helper()
	l, err := New(Config{
		Path:      path,
		Overrides: overrides,
		Aliases:   aliases,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLimiter_ExactCapacity(t *testing.T) {
	t.Parallel()
	l := newTestLimiter(t, "", map[string][]Window{
		"api": {{Limit: 3, Span: time.Minute}},
	}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Acquire(ctx, "api")
		require.NoError(t, err)
		require.True(t, ok, "acquisition %d should succeed", i+1)
	}

	ok, err := l.Acquire(ctx, "api")
	require.NoError(t, err)
	require.False(t, ok, "acquisition beyond the limit must fail")

	// Denial must not consume: usage stays at the limit.
	used, limit, window, err := l.Usage(ctx, "api")
	require.NoError(t, err)
	require.Equal(t, 3, used)
	require.Equal(t, 3, limit)
	require.Equal(t, time.Minute, window)
}

func TestLimiter_ReplenishesAfterWindow(t *testing.T) {
	t.Parallel()
	l := newTestLimiter(t, "", map[string][]Window{
		"api": {{Limit: 1, Span: time.Minute}},
	}, nil)
	ctx := context.Background()

	base := time.Now()
	l.now = func() time.Time { return base }

	ok, err := l.Acquire(ctx, "api")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Acquire(ctx, "api")
	require.NoError(t, err)
	require.False(t, ok)

	l.now = func() time.Time { return base.Add(61 * time.Second) }
	ok, err = l.Acquire(ctx, "api")
	require.NoError(t, err)
	require.True(t, ok, "capacity must replenish after the window elapses")
}

func TestLimiter_AllWindowsMustPass(t *testing.T) {
	t.Parallel()
	l := newTestLimiter(t, "", map[string][]Window{
		"api": {
			{Limit: 10, Span: time.Minute},
			{Limit: 2, Span: time.Hour},
		},
	}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Acquire(ctx, "api")
		require.NoError(t, err)
		require.True(t, ok)
	}

	// Minute window has headroom but the hourly one is exhausted.
	ok, err := l.Acquire(ctx, "api")
	require.NoError(t, err)
	require.False(t, ok)

	// Usage reports the most restrictive window.
	used, limit, window, err := l.Usage(ctx, "api")
	require.NoError(t, err)
	require.Equal(t, 2, used)
	require.Equal(t, 2, limit)
	require.Equal(t, time.Hour, window)
}

func TestLimiter_SurvivesRestart(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ratelimit.db")
	ctx := context.Background()

	l1 := newTestLimiter(t, path, map[string][]Window{
		"api": {{Limit: 2, Span: time.Hour}},
	}, nil)
	ok, err := l1.Acquire(ctx, "api")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, l1.Close())

	l2 := newTestLimiter(t, path, map[string][]Window{
		"api": {{Limit: 2, Span: time.Hour}},
	}, nil)
	ok, err = l2.Acquire(ctx, "api")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l2.Acquire(ctx, "api")
	require.NoError(t, err)
	require.False(t, ok, "consumption before restart must still count")
}

func TestLimiter_SharedBackendAlias(t *testing.T) {
	t.Parallel()
	l := newTestLimiter(t, "",
		map[string][]Window{"upstream": {{Limit: 1, Span: time.Minute}}},
		map[string]string{"board-a": "upstream", "board-b": "upstream"},
	)
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "board-a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Acquire(ctx, "board-b")
	require.NoError(t, err)
	require.False(t, ok, "sources sharing an upstream must share quota")
}

func TestLimiter_InvalidOverrideFallsBack(t *testing.T) {
	t.Parallel()
	l := newTestLimiter(t, "", map[string][]Window{
		"api": {{Limit: -5, Span: time.Minute}},
	}, nil)

	// The invalid override is discarded, so the defaults apply.
	_, limit, _, err := l.Usage(context.Background(), "api")
	require.NoError(t, err)
	require.Equal(t, DefaultWindows()[0].Limit, limit)
}

func TestOpenStore_CorruptFileResets(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ratelimit.db")
	require.NoError(t, os.WriteFile(path, []byte("not a sqlite file"), 0o644))

	store, err := OpenStore(path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	count, err := store.CountSince(context.Background(), "api", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, count)
}

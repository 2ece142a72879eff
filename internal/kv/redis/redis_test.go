package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, New(client, "wonchon:")
}

func TestStoreGetSetRemove(t *testing.T) {
	ctx := context.Background()
	mr, s := setupTestStore(t)

	_, ok, err := s.Get(ctx, "draft_1_2025_12")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "draft_1_2025_12", []byte(`[]`)))
	assert.True(t, mr.Exists("wonchon:draft_1_2025_12"))

	got, ok, err := s.Get(ctx, "draft_1_2025_12")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, s.Remove(ctx, "draft_1_2025_12"))
	assert.False(t, mr.Exists("wonchon:draft_1_2025_12"))
}

func TestStoreKeysStripsPrefix(t *testing.T) {
	ctx := context.Background()
	mr, s := setupTestStore(t)

	require.NoError(t, s.Set(ctx, "draft_2_2026_1", []byte("x")))
	require.NoError(t, s.Set(ctx, "draft_1_2025_12", []byte("x")))
	require.NoError(t, s.Set(ctx, "accessToken", []byte("x")))
	require.NoError(t, mr.Set("other:draft_9_2025_1", "x"))

	keys, err := s.Keys(ctx, "draft_")
	require.NoError(t, err)
	assert.Equal(t, []string{"draft_1_2025_12", "draft_2_2026_1"}, keys)
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := Open(context.Background(), "redis://"+mr.Addr(), "p:")
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(context.Background(), "://bad", "p:")
	assert.Error(t, err)
}

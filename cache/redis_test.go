package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilStoreIsAMiss(t *testing.T) {
	var s *Store
	ctx := context.Background()

	assert.False(t, s.Enabled())

	var dst []string
	hit, err := s.GetJSON(ctx, "k", &dst)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.NoError(t, s.SetJSON(ctx, "k", []string{"v"}, time.Second))
	assert.NoError(t, s.DelPrefix(ctx, ReviewFeedPrefix))
	assert.NoError(t, s.Close())
}

func TestEmptyStoreIsDisabled(t *testing.T) {
	assert.False(t, NewFromClient(nil).Enabled())
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestJSONRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	require.True(t, s.Enabled())

	var got []string
	hit, err := s.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, s.SetJSON(ctx, "k", []string{"a", "b"}, ReviewFeedTTL))
	assert.Equal(t, ReviewFeedTTL, mr.TTL("k"))

	hit, err = s.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a", "b"}, got)

	mr.FastForward(ReviewFeedTTL)
	hit, err = s.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGetJSONCorruptValue(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var got []string
	hit, err := s.GetJSON(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestDelPrefix(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	for _, key := range []string{ReviewFeedPrefix + ":", ReviewFeedPrefix + "drama:", ReviewFeedPrefix + "drama:happy"} {
		require.NoError(t, s.SetJSON(ctx, key, 1, time.Minute))
	}
	require.NoError(t, mr.Set("rate_limit:1.2.3.4", "3"))

	require.NoError(t, s.DelPrefix(ctx, ReviewFeedPrefix))
	assert.Equal(t, []string{"rate_limit:1.2.3.4"}, mr.Keys())

	require.NoError(t, s.DelPrefix(ctx, ReviewFeedPrefix), "nothing left to delete")
}

func TestIncrStartsWindowOnFirstHit(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	n, err := s.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, time.Minute, mr.TTL("counter"))

	mr.FastForward(30 * time.Second)
	n, err = s.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 30*time.Second, mr.TTL("counter"), "later hits keep the original window")

	mr.FastForward(30 * time.Second)
	n, err = s.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

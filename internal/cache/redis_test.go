package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherstation/internal/models"
)

func newTestCache(t *testing.T, latestSize int) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), mr.Addr(), "", 0, latestSize)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCache_MirrorSample(t *testing.T) {
	c, mr := newTestCache(t, 3)
	ctx := context.Background()

	var mirrored []models.Sample
	for i := 0; i < 5; i++ {
		s := models.NewSample(float64(i), 50, 1000, 1, 2, 3, 4, 5)
		mirrored = append(mirrored, s)
		require.NoError(t, c.MirrorSample(ctx, s))
	}

	// newest first, trimmed to latestSize
	latest, err := mr.List(LatestSamplesKey)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	var newest, oldest models.Sample
	require.NoError(t, json.Unmarshal([]byte(latest[0]), &newest))
	require.NoError(t, json.Unmarshal([]byte(latest[2]), &oldest))
	assert.Equal(t, 4.0, newest.Temperature)
	assert.Equal(t, 2.0, oldest.Temperature)

	total, err := c.GetCounter(ctx, SamplesTotalKey)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	key := SampleKeyPrefix + mirrored[0].ID.String()
	data, err := mr.Get(key)
	require.NoError(t, err)
	var got models.Sample
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, mirrored[0].ID, got.ID)

	mr.FastForward(SampleTTL + time.Second)
	assert.False(t, mr.Exists(key))
}

func TestRedisCache_Counters(t *testing.T) {
	c, _ := newTestCache(t, 0)
	ctx := context.Background()

	n, err := c.GetCounter(ctx, SpikesTotalKey)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = c.IncrementCounter(ctx, SpikesTotalKey)
	require.NoError(t, err)
	n, err = c.IncrementCounter(ctx, SpikesTotalKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(DefaultLatestSize), c.latestSize)
}

func TestRedisCache_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisCache(ctx, addr, "", 0, 10)
	assert.Error(t, err)
}

func TestRedisCache_MirrorFailsAfterServerGone(t *testing.T) {
	c, mr := newTestCache(t, 10)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := c.MirrorSample(ctx, models.NewSample(1, 2, 3, 4, 5, 6, 7, 8))
	assert.Error(t, err)
	assert.Error(t, c.Ping(ctx))
}

package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	Client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { Client = nil })
}

func TestAsideMissThenHit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]string) func() error {
		return func() error {
			calls++
			*dest = []string{"a", "b"}
			return nil
		}
	}

	var got []string
	require.NoError(t, Aside(ctx, "test:list", &got, ListTTL, fetch(&got)))
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, calls)

	// Second read must come from the cache.
	var again []string
	require.NoError(t, Aside(ctx, "test:list", &again, ListTTL, fetch(&again)))
	assert.Equal(t, []string{"a", "b"}, again)
	assert.Equal(t, 1, calls)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	value := "v1"
	fetch := func(dest *string) func() error {
		return func() error {
			*dest = value
			return nil
		}
	}

	var got string
	require.NoError(t, Aside(ctx, PostKey("abc"), &got, PostTTL, fetch(&got)))
	assert.Equal(t, "v1", got)

	value = "v2"
	InvalidatePost(ctx, "abc")

	var refreshed string
	require.NoError(t, Aside(ctx, PostKey("abc"), &refreshed, PostTTL, fetch(&refreshed)))
	assert.Equal(t, "v2", refreshed)
}

func TestAsideTreatsCacheErrorsAsMiss(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	// A corrupt cache entry makes the read fail; the fetch must still run.
	require.NoError(t, Client.Set(ctx, "test:broken", "{not json", 0).Err())

	fetched := false
	var got []string
	require.NoError(t, Aside(ctx, "test:broken", &got, ListTTL, func() error {
		fetched = true
		got = []string{"fresh"}
		return nil
	}))
	assert.True(t, fetched)
	assert.Equal(t, []string{"fresh"}, got)

	// The entry is rewritten from the fetched value, so the next read hits.
	var again []string
	require.NoError(t, Aside(ctx, "test:broken", &again, ListTTL, func() error {
		t.Fatal("second read must come from the cache")
		return nil
	}))
	assert.Equal(t, []string{"fresh"}, again)
}

func TestHelpersDegradeWithoutClient(t *testing.T) {
	Client = nil
	ctx := context.Background()

	found, err := GetJSON(ctx, "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, SetJSON(ctx, "k", "v", PostTTL))

	fetched := false
	require.NoError(t, Aside(ctx, "k", new(string), PostTTL, func() error {
		fetched = true
		return nil
	}))
	assert.True(t, fetched, "Aside must fall through to fetch when caching is disabled")
}

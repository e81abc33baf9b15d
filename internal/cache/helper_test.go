package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPost struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	c, err := NewClient(mr.Addr())
	require.NoError(t, err)

	prev := GetClient()
	SetClient(c)
	t.Cleanup(func() {
		SetClient(prev)
		_ = c.Close()
		mr.Close()
	})
	return mr
}

func TestAside_FetchesOnceThenHits(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *cachedPost) func() error {
		return func() error {
			calls++
			*dest = cachedPost{ID: "p1", Title: "Honey Butter Chips"}
			return nil
		}
	}

	var first cachedPost
	require.NoError(t, Aside(ctx, PostKey("p1"), &first, PostDetailTTL, fetch(&first)))
	var second cachedPost
	require.NoError(t, Aside(ctx, PostKey("p1"), &second, PostDetailTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Honey Butter Chips", second.Title)
	assert.True(t, mr.Exists("post:p1"))
	assert.Equal(t, PostDetailTTL, mr.TTL("post:p1"))
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	var dest cachedPost
	err := Aside(context.Background(), PostKey("gone"), &dest, PostDetailTTL, func() error {
		return errors.New("not found")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("post:gone"))
}

func TestInvalidate(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, SetJSON(context.Background(), PostKey("p1"), cachedPost{ID: "p1"}, PostDetailTTL))

	Invalidate(context.Background(), PostKey("p1"))
	assert.False(t, mr.Exists("post:p1"))
}

func TestHelpers_NoClient(t *testing.T) {
	prev := GetClient()
	SetClient(nil)
	defer SetClient(prev)

	found, err := GetJSON(context.Background(), "k", &cachedPost{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetJSON(context.Background(), "k", cachedPost{}, PostDetailTTL))
	Invalidate(context.Background(), "k")
}

func TestAside_ReadErrorFallsThrough(t *testing.T) {
	mr := setupMiniredis(t)
	mr.SetError("READONLY")
	defer mr.SetError("")

	var dest cachedPost
	err := Aside(context.Background(), PostKey("p1"), &dest, PostDetailTTL, func() error {
		dest.ID = "p1"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", dest.ID)
}

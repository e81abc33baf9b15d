package server

import (
	"net/http"
	"testing"

	"damara/internal/config"
	"damara/internal/models"
	"damara/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteWritesHavePerPostBudget(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.NewSQLiteDB(t)
	cfg := &config.Config{
		Env:              "production",
		JWTSecret:        testSecret,
		UploadDir:        t.TempDir(),
		UploadMaxMB:      1,
		RateLimitEnabled: true,
	}
	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	app := s.NewApp()

	author := testutil.CreateUser(t, db, "20230001", "author")
	fan := testutil.CreateUser(t, db, "20230002", "fan")
	busy := testutil.CreatePost(t, db, author, "Fruit box", 3)
	quiet := testutil.CreatePost(t, db, author, "Notebooks", 3)

	for i := 0; i < limitFavorite.Max; i++ {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/posts/"+busy.ID+"/favorite",
			map[string]string{"userId": fan.ID})
		require.Less(t, resp.StatusCode, 300, "request %d", i)
	}

	resp, body := doJSON(t, app, http.MethodPost, "/api/posts/"+busy.ID+"/favorite",
		map[string]string{"userId": fan.ID})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, models.CodeRateLimited, body["code"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp, _ = doJSON(t, app, http.MethodPost, "/api/posts/"+quiet.ID+"/favorite",
		map[string]string{"userId": fan.ID})
	assert.Less(t, resp.StatusCode, 300)

	// Reads are never limited.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/posts/"+busy.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

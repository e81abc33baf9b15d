package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"damara/internal/config"
	"damara/internal/models"
	"damara/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func newTestApp(t *testing.T) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	cfg := &config.Config{
		Env:         "test",
		JWTSecret:   testSecret,
		UploadDir:   t.TempDir(),
		UploadMaxMB: 1,
	}
	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	return s, s.NewApp(), db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestJoinPost_FillsLastSeatOnce(t *testing.T) {
	_, app, db := newTestApp(t)
	author := testutil.CreateUser(t, db, "20230001", "author")
	u2 := testutil.CreateUser(t, db, "20230002", "second")
	u3 := testutil.CreateUser(t, db, "20230003", "third")
	post := testutil.CreatePost(t, db, author, "Bulk rice", 5, func(p *models.Post) {
		p.CurrentQuantity = 4
	})

	resp, body := doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/participate",
		map[string]string{"userId": u2.ID})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 5, body["currentQuantity"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/participate",
		map[string]string{"userId": u3.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/posts/"+post.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 5, body["currentQuantity"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/posts/"+post.ID+"/participate/"+u3.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["isParticipant"])
}

func TestJoinPost_AuthorRejected(t *testing.T) {
	_, app, db := newTestApp(t)
	author := testutil.CreateUser(t, db, "20230001", "author")
	post := testutil.CreatePost(t, db, author, "Snacks", 3)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/participate",
		map[string]string{"userId": author.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLeavePost(t *testing.T) {
	_, app, db := newTestApp(t)
	author := testutil.CreateUser(t, db, "20230001", "author")
	u2 := testutil.CreateUser(t, db, "20230002", "second")
	post := testutil.CreatePost(t, db, author, "Snacks", 3)

	resp, _ := doJSON(t, app, http.MethodDelete, "/api/posts/"+post.ID+"/participate/"+u2.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/participate",
		map[string]string{"userId": u2.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodDelete, "/api/posts/"+post.ID+"/participate/"+u2.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["currentQuantity"])
}

func TestChangePostStatus(t *testing.T) {
	_, app, db := newTestApp(t)
	author := testutil.CreateUser(t, db, "20230001", "author")
	other := testutil.CreateUser(t, db, "20230002", "other")
	post := testutil.CreatePost(t, db, author, "Fruit box", 3)
	done := testutil.CreatePost(t, db, author, "Done deal", 2, func(p *models.Post) {
		p.Status = models.StatusCompleted
	})

	tests := []struct {
		name   string
		postID string
		body   map[string]string
		want   int
	}{
		{"non-owner", post.ID, map[string]string{"status": "closed", "authorId": other.ID}, http.StatusForbidden},
		{"unknown status", post.ID, map[string]string{"status": "archived", "authorId": author.ID}, http.StatusBadRequest},
		{"owner reopens completed", done.ID, map[string]string{"status": "open", "authorId": author.ID}, http.StatusOK},
		{"missing post", "nope", map[string]string{"status": "closed", "authorId": author.ID}, http.StatusNotFound},
		{"owner closes", post.ID, map[string]string{"status": "closed", "authorId": author.ID}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, app, http.MethodPatch, "/api/posts/"+tt.postID+"/status", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	var stored models.Post
	require.NoError(t, db.First(&stored, "id = ?", post.ID).Error)
	assert.Equal(t, models.StatusClosed, stored.Status)
	require.NoError(t, db.First(&stored, "id = ?", done.ID).Error)
	assert.Equal(t, models.StatusOpen, stored.Status)
}

func TestCreateAndListPosts(t *testing.T) {
	_, app, db := newTestApp(t)
	author := testutil.CreateUser(t, db, "20230001", "author")

	resp, body := doJSON(t, app, http.MethodPost, "/api/posts", map[string]any{
		"post": map[string]any{
			"authorId":        author.ID,
			"title":           "Coffee beans",
			"price":           12000,
			"minParticipants": 4,
			"deadline":        "2030-01-02T18:00",
			"pickupLocation":  "Library",
			"images":          []string{"/uploads/images/a.png"},
			"category":        "food",
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Coffee beans", body["title"])
	assert.Equal(t, "open", body["status"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/posts", map[string]any{
		"post": map[string]any{"authorId": author.ID, "title": "No images"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/posts?category=food", nil)
	listResp, err := app.Test(req, -1)
	require.NoError(t, err)
	var posts []models.Post
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Coffee beans", posts[0].Title)
}

func TestRegisterAndLogin(t *testing.T) {
	_, app, _ := newTestApp(t)

	register := map[string]any{"user": map[string]string{
		"email":        "Kim@Campus.ac.kr",
		"passwordHash": "password123",
		"nickname":     "kim",
		"studentId":    "20240001",
	}}
	resp, body := doJSON(t, app, http.MethodPost, "/users", register)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "kim@campus.ac.kr", body["email"])
	assert.NotContains(t, body, "passwordHash")

	resp, body = doJSON(t, app, http.MethodPost, "/api/users", register)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "EMAIL_ALREADY_EXISTS", body["error"])

	resp, body = doJSON(t, app, http.MethodPost, "/users/login",
		map[string]string{"studentId": "20240001", "password": "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "kim", body["nickname"])
	assert.NotEmpty(t, body["token"])

	resp, _ = doJSON(t, app, http.MethodPost, "/users/login",
		map[string]string{"studentId": "20240001", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTokenMismatchForbidden(t *testing.T) {
	s, app, db := newTestApp(t)
	author := testutil.CreateUser(t, db, "20230001", "author")
	u2 := testutil.CreateUser(t, db, "20230002", "second")
	u3 := testutil.CreateUser(t, db, "20230003", "third")
	post := testutil.CreatePost(t, db, author, "Snacks", 3)

	token, err := s.userService.GenerateToken(u2.ID)
	require.NoError(t, err)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/participate",
		map[string]string{"userId": u3.ID}, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/participate",
		map[string]string{}, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/posts", nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFavorites(t *testing.T) {
	_, app, db := newTestApp(t)
	author := testutil.CreateUser(t, db, "20230001", "author")
	u2 := testutil.CreateUser(t, db, "20230002", "second")
	post := testutil.CreatePost(t, db, author, "Snacks", 3)

	resp, body := doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/favorite",
		map[string]string{"userId": u2.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["isFavorite"])

	_, body = doJSON(t, app, http.MethodGet, "/api/posts/"+post.ID+"/favorite/"+u2.ID, nil)
	assert.Equal(t, true, body["isFavorite"])

	req := httptest.NewRequest(http.MethodGet, "/api/posts/user/"+u2.ID+"/favorites", nil)
	listResp, err := app.Test(req, -1)
	require.NoError(t, err)
	var posts []models.Post
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&posts))
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	resp, body = doJSON(t, app, http.MethodDelete, "/api/posts/"+post.ID+"/favorite/"+u2.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["isFavorite"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/posts/missing/favorite",
		map[string]string{"userId": u2.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	_, app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestCORSPreflight(t *testing.T) {
	_, app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

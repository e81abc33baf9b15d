package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"damara/internal/config"
	"damara/internal/groupbuy"
	"damara/internal/models"
	"damara/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestApp(t *testing.T, mux *http.ServeMux, stdin string) (*app, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.Config{APIBaseURL: srv.URL, SessionPath: filepath.Join(t.TempDir(), "session.yml")}
	sess, err := session.Open(context.Background(), session.NewFileStore(cfg.SessionPath))
	require.NoError(t, err)

	var out bytes.Buffer
	return newApp(cfg, sess, strings.NewReader(stdin), &out), &out
}

func TestTerminal_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		term := newTerminal(strings.NewReader(tt.input), &out)
		assert.Equal(t, tt.want, term.Confirm(context.Background(), "continue?"), "input %q", tt.input)
		assert.Contains(t, out.String(), "continue? [y/N]")
	}
}

func TestTerminal_Notify(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(strings.NewReader(""), &out)
	term.Notify(groupbuy.Notice{Level: groupbuy.LevelSuccess, Message: "done"})
	term.Notify(groupbuy.Notice{Level: groupbuy.LevelError, Message: "failed"})
	assert.Equal(t, "✓ done\n✗ failed\n", out.String())
}

func TestRun_LoginPersistsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "u1", "nickname": "minji", "studentId": "20240001", "email": "m@campus.ac.kr", "token": "tok",
		})
	})
	a, out := newTestApp(t, mux, "")

	require.NoError(t, a.run(context.Background(), []string{"login", "20240001", "pw"}))
	assert.Equal(t, "u1", a.sess.CurrentUserID())
	assert.Equal(t, "tok", a.sess.Token())
	assert.Contains(t, out.String(), "welcome, minji")

	reopened, err := session.Open(context.Background(), session.NewFileStore(a.cfg.SessionPath))
	require.NoError(t, err)
	assert.Equal(t, "u1", reopened.CurrentUserID())
}

func TestRun_PostsFiltersLocally(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Post{
			{ID: "p1", Title: "Bulk ramen", Category: models.CategoryFood, Status: models.StatusOpen, MinParticipants: 3},
			{ID: "p2", Title: "USB hub", Category: models.CategoryElectronics, Status: models.StatusOpen, MinParticipants: 2},
		})
	})
	a, out := newTestApp(t, mux, "")

	require.NoError(t, a.run(context.Background(), []string{"posts", "-q", "RAMEN"}))
	assert.Contains(t, out.String(), "Bulk ramen")
	assert.NotContains(t, out.String(), "USB hub")
}

func TestRun_PostsRejectsUnknownCategory(t *testing.T) {
	mux := http.NewServeMux()
	var listed bool
	mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, r *http.Request) {
		listed = true
		writeJSON(w, http.StatusOK, []models.Post{{ID: "p1", Title: "Desk lamp", Category: "misc"}})
	})
	a, out := newTestApp(t, mux, "")

	err := a.run(context.Background(), []string{"posts", "-category", "misc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
	assert.False(t, listed)
	assert.NotContains(t, out.String(), "Desk lamp")

	require.NoError(t, a.run(context.Background(), []string{"posts", "-category", "ETC"}))
	assert.True(t, listed)
	assert.NotContains(t, out.String(), "Desk lamp")
}

func TestRun_JoinRequiresLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/posts/p1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Post{ID: "p1", Title: "Bulk ramen", Status: models.StatusOpen, MinParticipants: 3})
	})
	a, _ := newTestApp(t, mux, "")

	err := a.run(context.Background(), []string{"join", "p1"})
	assert.ErrorIs(t, err, groupbuy.ErrLoginRequired)
}

func TestRun_Usage(t *testing.T) {
	a, _ := newTestApp(t, http.NewServeMux(), "")
	assert.ErrorIs(t, a.run(context.Background(), nil), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), []string{"bogus"}), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), []string{"show"}), errUsage)
}

// Package groupbuy holds the client-side view model of a group-buy post:
// status changes by the author, joining and leaving, the favorite marker
// and list filtering. Remote state lives behind Store; results are
// reported to the user through Notifier.
package groupbuy

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"damara/internal/client"
	"damara/internal/models"
)

var (
	ErrLoginRequired     = errors.New("login required")
	ErrNotLoaded         = errors.New("post not loaded")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCancelled         = errors.New("cancelled by user")
)

// Store is the remote post store. *client.Client satisfies it.
type Store interface {
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ChangeStatus(ctx context.Context, postID string, status models.Status, authorID string) (*models.Post, error)
	IsParticipant(ctx context.Context, postID, userID string) (bool, error)
	Join(ctx context.Context, postID, userID string) (*client.ParticipationResult, error)
	Leave(ctx context.Context, postID, userID string) (*client.ParticipationResult, error)
	IsFavorite(ctx context.Context, postID, userID string) (bool, error)
	AddFavorite(ctx context.Context, postID, userID string) error
	RemoveFavorite(ctx context.Context, postID, userID string) error
}

var _ Store = (*client.Client)(nil)

// Level is the severity of a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Notice is a user-visible message, the equivalent of a toast.
type Notice struct {
	Level   Level
	Message string
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(Notice)
}

// Confirmer asks the user a yes/no question and blocks for the answer.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// EntryState tracks an optimistic favorite flip.
type EntryState string

const (
	EntryUnknown   EntryState = ""
	EntryPending   EntryState = "pending"
	EntryConfirmed EntryState = "confirmed"
	EntryFailed    EntryState = "failed"
)

// ViewState is a copy of what the post page shows.
type ViewState struct {
	Post          models.Post
	Loaded        bool
	NotFound      bool
	IsParticipant bool
	IsFavorite    bool
	FavoriteState EntryState
}

// PostView is the shared view state of one post page. The controller,
// participation and favorite components all write to it. Locks are never
// held across network calls.
type PostView struct {
	mu    sync.Mutex
	state ViewState
	// favSeq identifies the latest favorite toggle so stale completions
	// do not overwrite newer ones.
	favSeq uint64
}

// NewPostView returns an empty view.
func NewPostView() *PostView {
	return &PostView{}
}

// Snapshot returns a copy of the current state.
func (v *PostView) Snapshot() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.Post.Images = append([]models.PostImage(nil), v.state.Post.Images...)
	return s
}

func (v *PostView) update(fn func(s *ViewState)) {
	v.mu.Lock()
	fn(&v.state)
	v.mu.Unlock()
}

// showing reports whether the view currently holds postID.
func (s *ViewState) showing(postID string) bool {
	return s.Loaded && s.Post.ID == postID
}

func (v *PostView) setPost(p *models.Post) {
	v.update(func(s *ViewState) {
		if s.Post.ID != p.ID {
			s.IsParticipant = false
			s.IsFavorite = false
			s.FavoriteState = EntryUnknown
		}
		s.Post = *p
		s.Loaded = true
		s.NotFound = false
	})
}

// RecruitmentComplete reports whether the post has reached its target.
func RecruitmentComplete(p models.Post) bool {
	return p.CurrentQuantity >= p.MinParticipants
}

// apiMessage returns the server's message for err, or fallback.
func apiMessage(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Message != http.StatusText(apiErr.StatusCode) {
		return apiErr.Message
	}
	return fallback
}

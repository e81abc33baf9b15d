package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"damara/internal/models"
	"damara/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, string) (*models.Post, error)
	listFn         func(context.Context, repository.ListFilter) ([]*models.Post, error)
	updateFn       func(context.Context, *models.Post, []string) error
	updateStatusFn func(context.Context, string, models.Status, models.Status) error
	deleteFn       func(context.Context, string) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, filter repository.ListFilter) ([]*models.Post, error) {
	return s.listFn(ctx, filter)
}
func (s *postRepoStub) ListByStudentID(_ context.Context, _ string, _, _ int) ([]*models.Post, error) {
	return nil, nil
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post, images []string) error {
	return s.updateFn(ctx, post, images)
}
func (s *postRepoStub) UpdateStatus(ctx context.Context, id string, from, to models.Status) error {
	return s.updateStatusFn(ctx, id, from, to)
}
func (s *postRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

// postRepoWith serves a copy of post from GetByID and accepts every write.
func postRepoWith(post *models.Post) *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) {
			if post == nil || id != post.ID {
				return nil, models.NewNotFoundError("Post", id)
			}
			cp := *post
			return &cp, nil
		},
		listFn:         func(_ context.Context, _ repository.ListFilter) ([]*models.Post, error) { return nil, nil },
		updateFn:       func(_ context.Context, _ *models.Post, _ []string) error { return nil },
		updateStatusFn: func(_ context.Context, _ string, _, _ models.Status) error { return nil },
		deleteFn:       func(_ context.Context, _ string) error { return nil },
	}
}

// partRepoStub is a stub for repository.ParticipationRepository.
type partRepoStub struct {
	joinFn         func(context.Context, string, string) error
	leaveFn        func(context.Context, string, string) error
	participantsFn func(context.Context, string) ([]*models.Participation, error)
}

func (s *partRepoStub) Join(ctx context.Context, postID, userID string) error {
	return s.joinFn(ctx, postID, userID)
}
func (s *partRepoStub) Leave(ctx context.Context, postID, userID string) error {
	return s.leaveFn(ctx, postID, userID)
}
func (s *partRepoStub) IsParticipant(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}
func (s *partRepoStub) Participants(ctx context.Context, postID string) ([]*models.Participation, error) {
	return s.participantsFn(ctx, postID)
}
func (s *partRepoStub) ParticipatedPosts(_ context.Context, _ string) ([]*models.Post, error) {
	return nil, nil
}

func noopPartRepo() *partRepoStub {
	return &partRepoStub{
		joinFn:         func(_ context.Context, _, _ string) error { return nil },
		leaveFn:        func(_ context.Context, _, _ string) error { return nil },
		participantsFn: func(_ context.Context, _ string) ([]*models.Participation, error) { return nil, nil },
	}
}

// noticeRepoStub records created notifications.
type noticeRepoStub struct {
	mu      sync.Mutex
	created []*models.Notification
	err     error
}

func (s *noticeRepoStub) Create(_ context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, n)
	return nil
}
func (s *noticeRepoStub) List(_ context.Context, _ string, _, _ int, _ bool) ([]*models.Notification, error) {
	return nil, nil
}
func (s *noticeRepoStub) UnreadCount(_ context.Context, _ string) (int64, error) { return 0, nil }
func (s *noticeRepoStub) MarkRead(_ context.Context, _, _ string) error          { return nil }
func (s *noticeRepoStub) MarkAllRead(_ context.Context, _ string) (int64, error) { return 0, nil }
func (s *noticeRepoStub) Delete(_ context.Context, _, _ string) error            { return nil }

func (s *noticeRepoStub) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, n := range s.created {
		out = append(out, n.UserID)
	}
	return out
}

// publisherStub records published channels.
type publisherStub struct {
	mu    sync.Mutex
	users []string
	rooms []string
}

func (p *publisherStub) PublishUser(_ context.Context, userID string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
	return nil
}

func (p *publisherStub) PublishChatMessage(_ context.Context, roomID string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = append(p.rooms, roomID)
	return nil
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

package groupbuy

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"damara/internal/client"
	"damara/internal/models"
)

// fakeStore is an in-memory Store. Hooks, when set, run instead of the
// default behavior.
type fakeStore struct {
	mu           sync.Mutex
	posts        map[string]*models.Post
	participants map[string]map[string]bool
	favorites    map[string]map[string]bool
	calls        []string

	changeStatusFn func(postID string, status models.Status, authorID string) error
	addFavoriteFn  func(postID, userID string) error
	leaveFn        func(postID, userID string) error
}

func newFakeStore(posts ...models.Post) *fakeStore {
	s := &fakeStore{
		posts:        map[string]*models.Post{},
		participants: map[string]map[string]bool{},
		favorites:    map[string]map[string]bool{},
	}
	for i := range posts {
		p := posts[i]
		s.posts[p.ID] = &p
	}
	return s
}

func apiErr(status int, msg string) error {
	return &client.APIError{StatusCode: status, Message: msg}
}

func (s *fakeStore) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *fakeStore) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (s *fakeStore) GetPost(_ context.Context, id string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetPost")
	p, ok := s.posts[id]
	if !ok {
		return nil, apiErr(http.StatusNotFound, "Post not found")
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) ChangeStatus(_ context.Context, postID string, status models.Status, authorID string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ChangeStatus")
	if s.changeStatusFn != nil {
		if err := s.changeStatusFn(postID, status, authorID); err != nil {
			return nil, err
		}
	}
	p, ok := s.posts[postID]
	if !ok {
		return nil, apiErr(http.StatusNotFound, "Post not found")
	}
	if p.AuthorID != authorID {
		return nil, apiErr(http.StatusForbidden, "Only the author can change the status")
	}
	p.Status = status
	cp := *p
	return &cp, nil
}

func (s *fakeStore) IsParticipant(_ context.Context, postID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("IsParticipant")
	return s.participants[postID][userID], nil
}

func (s *fakeStore) Join(_ context.Context, postID, userID string) (*client.ParticipationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Join")
	p, ok := s.posts[postID]
	if !ok {
		return nil, apiErr(http.StatusNotFound, "Post not found")
	}
	if p.AuthorID == userID || s.participants[postID][userID] ||
		p.Status != models.StatusOpen || p.CurrentQuantity >= p.MinParticipants {
		return nil, apiErr(http.StatusBadRequest, "Cannot join this post")
	}
	if s.participants[postID] == nil {
		s.participants[postID] = map[string]bool{}
	}
	s.participants[postID][userID] = true
	p.CurrentQuantity++
	cp := *p
	return &client.ParticipationResult{Post: &cp, CurrentQuantity: cp.CurrentQuantity}, nil
}

func (s *fakeStore) Leave(_ context.Context, postID, userID string) (*client.ParticipationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Leave")
	if s.leaveFn != nil {
		if err := s.leaveFn(postID, userID); err != nil {
			return nil, err
		}
		return &client.ParticipationResult{}, nil
	}
	if !s.participants[postID][userID] {
		return nil, apiErr(http.StatusNotFound, "Participation not found")
	}
	delete(s.participants[postID], userID)
	p := s.posts[postID]
	p.CurrentQuantity = max(p.CurrentQuantity-1, 0)
	cp := *p
	return &client.ParticipationResult{Post: &cp, CurrentQuantity: cp.CurrentQuantity}, nil
}

func (s *fakeStore) IsFavorite(_ context.Context, postID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("IsFavorite")
	return s.favorites[postID][userID], nil
}

func (s *fakeStore) AddFavorite(_ context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("AddFavorite")
	if s.addFavoriteFn != nil {
		if err := s.addFavoriteFn(postID, userID); err != nil {
			return err
		}
	}
	if s.favorites[postID] == nil {
		s.favorites[postID] = map[string]bool{}
	}
	s.favorites[postID][userID] = true
	return nil
}

func (s *fakeStore) RemoveFavorite(_ context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("RemoveFavorite")
	delete(s.favorites[postID], userID)
	return nil
}

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) Notify(n Notice) {
	l.mu.Lock()
	l.notices = append(l.notices, n)
	l.mu.Unlock()
}

func (l *noticeLog) last() Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.notices) == 0 {
		return Notice{}
	}
	return l.notices[len(l.notices)-1]
}

type answer bool

func (a answer) Confirm(context.Context, string) bool { return bool(a) }

var errNetwork = errors.New("dial tcp: connection refused")

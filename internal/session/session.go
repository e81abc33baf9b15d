// Package session holds who is logged in on this device and their display
// preferences. A Session is built once at startup and handed to whatever
// needs identity.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"damara/internal/client"
	"damara/internal/models"
)

// FontSize is the reading size preference.
type FontSize string

const (
	FontSmall  FontSize = "small"
	FontMedium FontSize = "medium"
	FontLarge  FontSize = "large"
)

// ParseFontSize maps unknown or empty values to medium.
func ParseFontSize(s string) FontSize {
	switch f := FontSize(strings.ToLower(strings.TrimSpace(s))); f {
	case FontSmall, FontMedium, FontLarge:
		return f
	}
	return FontMedium
}

// Profile is the part of the user kept on the device.
type Profile struct {
	ID         string `yaml:"id" json:"id"`
	Email      string `yaml:"email" json:"email"`
	Nickname   string `yaml:"nickname" json:"nickname"`
	StudentID  string `yaml:"studentId" json:"studentId"`
	Department string `yaml:"department,omitempty" json:"department,omitempty"`
	AvatarURL  string `yaml:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
}

// ProfileOf copies the persisted fields of u.
func ProfileOf(u *models.User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:         u.ID,
		Email:      u.Email,
		Nickname:   u.Nickname,
		StudentID:  u.StudentID,
		Department: u.Department,
		AvatarURL:  u.AvatarURL,
	}
}

// State is what a Store persists.
type State struct {
	UserID   string   `yaml:"userId,omitempty"`
	User     *Profile `yaml:"user,omitempty"`
	Token    string   `yaml:"token,omitempty"`
	DarkMode bool     `yaml:"darkMode"`
	FontSize FontSize `yaml:"fontSize"`
}

func (s *State) normalize() {
	s.FontSize = ParseFontSize(string(s.FontSize))
	if s.UserID == "" && s.User != nil {
		s.UserID = s.User.ID
	}
}

// Store persists session state.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
}

// Session is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	state State
	store Store
}

var _ client.TokenSource = (*Session)(nil)

// Open loads the session from store.
func Open(ctx context.Context, store Store) (*Session, error) {
	st, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	st.normalize()
	return &Session{state: st, store: store}, nil
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

func (s *Session) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserID
}

func (s *Session) LoggedIn() bool {
	return s.CurrentUserID() != ""
}

func (s *Session) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.DarkMode
}

func (s *Session) FontSize() FontSize {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FontSize
}

func (s *Session) mutate(ctx context.Context, fn func(st *State)) error {
	s.mu.Lock()
	fn(&s.state)
	s.state.normalize()
	st := s.state
	s.mu.Unlock()
	return s.store.Save(ctx, st)
}

// Login records the signed-in user and their token.
func (s *Session) Login(ctx context.Context, u *models.User, token string) error {
	if u == nil || u.ID == "" {
		return fmt.Errorf("login: user id is required")
	}
	return s.mutate(ctx, func(st *State) {
		st.UserID = u.ID
		st.User = ProfileOf(u)
		st.Token = token
	})
}

// UpdateProfile replaces the cached profile after an edit.
func (s *Session) UpdateProfile(ctx context.Context, u *models.User) error {
	return s.mutate(ctx, func(st *State) {
		if st.UserID == u.ID {
			st.User = ProfileOf(u)
		}
	})
}

// Logout forgets the user. Display preferences stay.
func (s *Session) Logout(ctx context.Context) error {
	return s.mutate(ctx, func(st *State) {
		st.UserID = ""
		st.User = nil
		st.Token = ""
	})
}

func (s *Session) SetDarkMode(ctx context.Context, on bool) error {
	return s.mutate(ctx, func(st *State) { st.DarkMode = on })
}

func (s *Session) SetFontSize(ctx context.Context, size FontSize) error {
	return s.mutate(ctx, func(st *State) { st.FontSize = size })
}

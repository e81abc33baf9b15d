package groupbuy

import (
	"context"
	"net/http"

	"damara/internal/client"
)

// Participation tracks whether the current user takes part in the loaded
// post and keeps the shown counter in step with join and leave.
type Participation struct {
	store     Store
	notifier  Notifier
	confirmer Confirmer
	view      *PostView
}

func NewParticipation(store Store, notifier Notifier, confirmer Confirmer, view *PostView) *Participation {
	return &Participation{store: store, notifier: notifier, confirmer: confirmer, view: view}
}

// Check asks the server whether userID participates. Errors read as "not
// participating" so the join action stays available.
func (p *Participation) Check(ctx context.Context, postID, userID string) bool {
	if userID == "" {
		return false
	}
	ok, err := p.store.IsParticipant(ctx, postID, userID)
	if err != nil {
		ok = false
	}
	p.view.update(func(s *ViewState) {
		if s.showing(postID) {
			s.IsParticipant = ok
		}
	})
	return ok
}

// CanJoin is the advisory pre-check behind the join button. The server
// decides.
func (p *Participation) CanJoin(userID string) bool {
	s := p.view.Snapshot()
	return userID != "" &&
		s.Loaded &&
		!s.IsParticipant &&
		s.Post.AuthorID != userID &&
		s.Post.Status.Joinable() &&
		!RecruitmentComplete(s.Post)
}

// Join adds userID to the post. The counter moves by one only after the
// server confirms.
func (p *Participation) Join(ctx context.Context, postID, userID string) error {
	if userID == "" {
		p.notifier.Notify(Notice{Level: LevelError, Message: "로그인이 필요합니다."})
		return ErrLoginRequired
	}
	if _, err := p.store.Join(ctx, postID, userID); err != nil {
		msg := "참여에 실패했습니다."
		if client.IsStatus(err, http.StatusBadRequest) {
			msg = "이미 참여했거나 작성자는 참여할 수 없습니다."
		}
		p.notifier.Notify(Notice{Level: LevelError, Message: msg})
		return err
	}

	p.view.update(func(s *ViewState) {
		if s.showing(postID) {
			s.IsParticipant = true
			s.Post.CurrentQuantity++
		}
	})
	p.notifier.Notify(Notice{Level: LevelSuccess, Message: "참여가 완료되었습니다!"})
	return nil
}

// Leave asks for confirmation, then removes userID from the post. The
// shown counter never drops below zero.
func (p *Participation) Leave(ctx context.Context, postID, userID string) error {
	if userID == "" {
		return ErrLoginRequired
	}
	if !p.confirmer.Confirm(ctx, "참여를 취소하시겠습니까?") {
		return ErrCancelled
	}
	if _, err := p.store.Leave(ctx, postID, userID); err != nil {
		p.notifier.Notify(Notice{Level: LevelError, Message: "참여 취소에 실패했습니다."})
		return err
	}

	p.view.update(func(s *ViewState) {
		if s.showing(postID) {
			s.IsParticipant = false
			s.Post.CurrentQuantity = max(s.Post.CurrentQuantity-1, 0)
		}
	})
	p.notifier.Notify(Notice{Level: LevelSuccess, Message: "참여가 취소되었습니다."})
	return nil
}

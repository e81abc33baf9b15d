package groupbuy

import (
	"context"
	"fmt"
	"net/http"

	"damara/internal/client"
	"damara/internal/models"
)

// Controller loads a post and lets its author move it through the status
// lifecycle.
type Controller struct {
	store       Store
	notifier    Notifier
	view        *PostView
	transitions models.TransitionTable
}

// NewController creates a controller writing into view.
func NewController(store Store, notifier Notifier, view *PostView) *Controller {
	return &Controller{
		store:       store,
		notifier:    notifier,
		view:        view,
		transitions: models.StatusTransitions,
	}
}

// View returns the view the controller writes to.
func (c *Controller) View() *PostView { return c.view }

// LoadPost fetches the post. Any failure leaves the view in the not-found
// state; there is no retry.
func (c *Controller) LoadPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := c.store.GetPost(ctx, id)
	if err != nil {
		c.view.update(func(s *ViewState) {
			s.Loaded = false
			s.NotFound = true
		})
		c.notifier.Notify(Notice{Level: LevelError, Message: "게시글을 불러올 수 없습니다."})
		return nil, fmt.Errorf("load post %s: %w", id, err)
	}
	c.view.setPost(post)
	return post, nil
}

// ChangeStatus moves the post to newStatus on behalf of actingUserID. Any
// enumerated status may follow any other; unknown statuses are rejected
// without a network call. The view changes only after the server accepts.
func (c *Controller) ChangeStatus(ctx context.Context, postID string, newStatus models.Status, actingUserID string) error {
	if actingUserID == "" {
		c.notifier.Notify(Notice{Level: LevelError, Message: "로그인이 필요합니다."})
		return ErrLoginRequired
	}
	snap := c.view.Snapshot()
	if !snap.showing(postID) {
		if _, err := c.LoadPost(ctx, postID); err != nil {
			return err
		}
		snap = c.view.Snapshot()
	}

	from := snap.Post.Status
	if from == newStatus {
		return nil
	}
	if !c.transitions.Allows(from, newStatus) {
		c.notifier.Notify(Notice{
			Level:   LevelError,
			Message: fmt.Sprintf("%s 상태에서 %s(으)로 변경할 수 없습니다.", from.Label(), newStatus.Label()),
		})
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, newStatus)
	}

	if _, err := c.store.ChangeStatus(ctx, postID, newStatus, actingUserID); err != nil {
		var msg string
		switch {
		case client.IsStatus(err, http.StatusForbidden):
			msg = "작성자만 상태를 변경할 수 있습니다."
		case client.IsStatus(err, http.StatusBadRequest):
			msg = apiMessage(err, "상태 변경이 불가능합니다.")
		default:
			msg = apiMessage(err, "상태 변경에 실패했습니다.")
		}
		c.notifier.Notify(Notice{Level: LevelError, Message: msg})
		return err
	}

	c.view.update(func(s *ViewState) {
		if s.showing(postID) {
			s.Post.Status = newStatus
		}
	})
	c.notifier.Notify(Notice{Level: LevelSuccess, Message: fmt.Sprintf("상태가 %s(으)로 변경되었습니다.", newStatus.Label())})
	return nil
}

// NextStatuses lists the statuses the author may pick from the current one.
func (c *Controller) NextStatuses() []models.Status {
	snap := c.view.Snapshot()
	if !snap.Loaded {
		return nil
	}
	return c.transitions.Next(snap.Post.Status)
}

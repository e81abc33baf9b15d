package groupbuy

import (
	"context"

	"damara/internal/observability"
)

// FavoritePolicy decides what a failed favorite call does to the shown
// marker.
type FavoritePolicy int

const (
	// KeepOptimistic leaves the flipped marker in place; the next Check
	// re-syncs it from the server.
	KeepOptimistic FavoritePolicy = iota
	// Revert puts the marker back when the call fails.
	Revert
)

func (p FavoritePolicy) String() string {
	if p == Revert {
		return "revert"
	}
	return "keep-optimistic"
}

// Favorite is the per-user bookmark toggle of the loaded post.
type Favorite struct {
	store    Store
	notifier Notifier
	view     *PostView
	policy   FavoritePolicy
}

func NewFavorite(store Store, notifier Notifier, view *PostView, policy FavoritePolicy) *Favorite {
	return &Favorite{store: store, notifier: notifier, view: view, policy: policy}
}

// Policy returns the failure policy in use.
func (f *Favorite) Policy() FavoritePolicy { return f.policy }

// Check reads the marker from the server, replacing whatever the view
// shows. Errors read as false.
func (f *Favorite) Check(ctx context.Context, postID, userID string) bool {
	if userID == "" {
		return false
	}
	ok, err := f.store.IsFavorite(ctx, postID, userID)
	state := EntryConfirmed
	if err != nil {
		ok, state = false, EntryFailed
	}
	f.view.mu.Lock()
	if f.view.state.showing(postID) {
		f.view.favSeq++
		f.view.state.IsFavorite = ok
		f.view.state.FavoriteState = state
	}
	f.view.mu.Unlock()
	return ok
}

// Toggle flips the shown marker immediately, then calls the server. It
// returns the marker as shown after the call settles.
func (f *Favorite) Toggle(ctx context.Context, postID, userID string) (bool, error) {
	if userID == "" {
		f.notifier.Notify(Notice{Level: LevelError, Message: "로그인이 필요합니다."})
		return f.view.Snapshot().IsFavorite, ErrLoginRequired
	}

	f.view.mu.Lock()
	desired := !f.view.state.IsFavorite
	f.view.state.IsFavorite = desired
	f.view.state.FavoriteState = EntryPending
	f.view.favSeq++
	seq := f.view.favSeq
	f.view.mu.Unlock()

	var err error
	if desired {
		err = f.store.AddFavorite(ctx, postID, userID)
	} else {
		err = f.store.RemoveFavorite(ctx, postID, userID)
	}

	f.view.mu.Lock()
	defer f.view.mu.Unlock()
	if seq != f.view.favSeq {
		// A newer toggle or check owns the marker now.
		return f.view.state.IsFavorite, err
	}
	if err != nil {
		f.view.state.FavoriteState = EntryFailed
		if f.policy == Revert {
			f.view.state.IsFavorite = !desired
		}
		observability.Logger.WarnContext(ctx, "favorite toggle failed",
			"post_id", postID, "desired", desired, "policy", f.policy.String(), "error", err)
		return f.view.state.IsFavorite, err
	}
	f.view.state.FavoriteState = EntryConfirmed
	return f.view.state.IsFavorite, nil
}

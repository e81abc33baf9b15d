// Package service holds the business rules between HTTP handlers and repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"damara/internal/models"
	"damara/internal/observability"
	"damara/internal/repository"
	"damara/internal/validation"
)

// Publisher pushes events to subscribers. *notifications.Notifier satisfies it.
type Publisher interface {
	PublishUser(ctx context.Context, userID string, v any) error
	PublishChatMessage(ctx context.Context, roomID string, v any) error
}

type PostService struct {
	postRepo  repository.PostRepository
	partRepo  repository.ParticipationRepository
	favRepo   repository.FavoriteRepository
	noticeSvc *NotificationService
}

type UpdatePostInput struct {
	ActorID        string
	PostID         string
	Title          *string
	Content        *string
	Price          *int64
	Deadline       *time.Time
	PickupLocation *string
	Category       *models.Category
	// Images replaces the image list when non-nil.
	Images []string
}

type ChangeStatusInput struct {
	ActorID string
	PostID  string
	Status  string
}

func NewPostService(
	postRepo repository.PostRepository,
	partRepo repository.ParticipationRepository,
	favRepo repository.FavoriteRepository,
	noticeSvc *NotificationService,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		partRepo:  partRepo,
		favRepo:   favRepo,
		noticeSvc: noticeSvc,
	}
}

func (s *PostService) CreatePost(ctx context.Context, draft validation.PostDraft) (*models.Post, error) {
	draft.Normalize()
	if err := validation.ValidatePostDraft(draft); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{
		AuthorID:        draft.AuthorID,
		Title:           draft.Title,
		Content:         draft.Content,
		Price:           draft.Price,
		MinParticipants: draft.MinParticipants,
		CurrentQuantity: 0,
		Deadline:        draft.Deadline,
		PickupLocation:  draft.PickupLocation,
		Category:        draft.Category,
		Status:          models.StatusOpen,
	}
	for _, url := range draft.Images {
		post.Images = append(post.Images, models.PostImage{ImageURL: url})
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) ListPosts(ctx context.Context, filter repository.ListFilter) ([]*models.Post, error) {
	if filter.Category != "" && filter.Category != models.CategoryAll && !filter.Category.Known() {
		return nil, models.NewValidationError("Unknown category")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.NewValidationError("Unknown status")
	}
	return s.postRepo.List(ctx, filter)
}

func (s *PostService) ListByStudentID(ctx context.Context, studentID string, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.ListByStudentID(ctx, studentID, limit, offset)
}

// UpdatePost applies the descriptive fields of in. Only the author may edit.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, in.PostID, in.ActorID, "update")
	if err != nil {
		return nil, err
	}

	draft := validation.PostDraft{
		AuthorID:        post.AuthorID,
		Title:           post.Title,
		Content:         post.Content,
		Price:           post.Price,
		MinParticipants: post.MinParticipants,
		Deadline:        post.Deadline,
		PickupLocation:  post.PickupLocation,
		Images:          post.ImageURLs(),
		Category:        post.Category,
	}
	if in.Title != nil {
		draft.Title = *in.Title
	}
	if in.Content != nil {
		draft.Content = *in.Content
	}
	if in.Price != nil {
		draft.Price = *in.Price
	}
	if in.Deadline != nil {
		draft.Deadline = *in.Deadline
	}
	if in.PickupLocation != nil {
		draft.PickupLocation = *in.PickupLocation
	}
	if in.Category != nil {
		draft.Category = *in.Category
	}
	if in.Images != nil {
		draft.Images = in.Images
	}
	draft.Normalize()
	if err := validation.ValidatePostDraft(draft); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post.Title = draft.Title
	post.Content = draft.Content
	post.Price = draft.Price
	post.Deadline = draft.Deadline
	post.PickupLocation = draft.PickupLocation
	post.Category = draft.Category

	var images []string
	if in.Images != nil {
		images = draft.Images
	}
	if err := s.postRepo.Update(ctx, post, images); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) DeletePost(ctx context.Context, postID, actorID string) error {
	if _, err := s.ownedPost(ctx, postID, actorID, "delete"); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, postID)
}

// ChangeStatus moves a post along the lifecycle table. Participants are
// notified of the new status.
func (s *PostService) ChangeStatus(ctx context.Context, in ChangeStatusInput) (*models.Post, error) {
	to := models.Status(in.Status)
	if !to.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("Invalid status: %q", in.Status))
	}
	post, err := s.ownedPost(ctx, in.PostID, in.ActorID, "change the status of")
	if err != nil {
		return nil, err
	}
	from := post.Status
	if from == to {
		return post, nil
	}
	if !models.CanTransition(from, to) {
		return nil, models.NewValidationError(fmt.Sprintf("Cannot change status from %s to %s", from, to))
	}

	if err := s.postRepo.UpdateStatus(ctx, post.ID, from, to); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, models.NewConflictError("Post status was changed by another request")
		}
		return nil, err
	}
	observability.StatusTransitions.WithLabelValues(string(from), string(to)).Inc()

	participants, err := s.partRepo.Participants(ctx, post.ID)
	if err != nil {
		observability.Logger.WarnContext(ctx, "status notice skipped", "post_id", post.ID, "error", err)
	}
	for _, p := range participants {
		s.noticeSvc.Notify(ctx, Notice{
			UserID: p.UserID,
			Type:   models.NotificationStatusChanged,
			Title:  fmt.Sprintf("%s: %s", post.Title, to.Label()),
			PostID: post.ID,
		})
	}

	return s.postRepo.GetByID(ctx, post.ID)
}

// Join adds userID to the post. The author cannot join their own post and
// a closed or full post rejects new participants.
func (s *PostService) Join(ctx context.Context, postID, userID string) (*models.Post, error) {
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID == userID {
		observability.ParticipationEvents.WithLabelValues("join", "rejected").Inc()
		return nil, models.NewValidationError("The author cannot join their own post")
	}

	err = s.partRepo.Join(ctx, postID, userID)
	switch {
	case errors.Is(err, repository.ErrAlreadyParticipant):
		observability.ParticipationEvents.WithLabelValues("join", "rejected").Inc()
		return nil, models.NewValidationError("Already participating in this post")
	case errors.Is(err, repository.ErrPostNotJoinable):
		observability.ParticipationEvents.WithLabelValues("join", "rejected").Inc()
		return nil, models.NewValidationError("This post is not accepting participants")
	case err != nil:
		observability.ParticipationEvents.WithLabelValues("join", "error").Inc()
		return nil, err
	}
	observability.ParticipationEvents.WithLabelValues("join", "ok").Inc()

	s.noticeSvc.Notify(ctx, Notice{
		UserID: post.AuthorID,
		Type:   models.NotificationParticipantJoined,
		Title:  fmt.Sprintf("New participant on %s", post.Title),
		PostID: post.ID,
	})
	return s.postRepo.GetByID(ctx, postID)
}

func (s *PostService) Leave(ctx context.Context, postID, userID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	err = s.partRepo.Leave(ctx, postID, userID)
	if errors.Is(err, repository.ErrNotParticipant) {
		observability.ParticipationEvents.WithLabelValues("leave", "rejected").Inc()
		return nil, models.NewNotFoundError("Participation", userID)
	}
	if err != nil {
		observability.ParticipationEvents.WithLabelValues("leave", "error").Inc()
		return nil, err
	}
	observability.ParticipationEvents.WithLabelValues("leave", "ok").Inc()

	s.noticeSvc.Notify(ctx, Notice{
		UserID: post.AuthorID,
		Type:   models.NotificationParticipantLeft,
		Title:  fmt.Sprintf("A participant left %s", post.Title),
		PostID: post.ID,
	})
	return s.postRepo.GetByID(ctx, postID)
}

func (s *PostService) IsParticipant(ctx context.Context, postID, userID string) (bool, error) {
	return s.partRepo.IsParticipant(ctx, postID, userID)
}

func (s *PostService) Participants(ctx context.Context, postID string) ([]*models.Participation, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.partRepo.Participants(ctx, postID)
}

func (s *PostService) ParticipatedPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	return s.partRepo.ParticipatedPosts(ctx, userID)
}

func (s *PostService) AddFavorite(ctx context.Context, postID, userID string) error {
	if userID == "" {
		return models.NewValidationError("userId is required")
	}
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return err
	}
	if err := s.favRepo.Add(ctx, postID, userID); err != nil {
		return err
	}
	observability.FavoriteEvents.WithLabelValues("add").Inc()
	return nil
}

func (s *PostService) RemoveFavorite(ctx context.Context, postID, userID string) error {
	if err := s.favRepo.Remove(ctx, postID, userID); err != nil {
		return err
	}
	observability.FavoriteEvents.WithLabelValues("remove").Inc()
	return nil
}

func (s *PostService) IsFavorite(ctx context.Context, postID, userID string) (bool, error) {
	return s.favRepo.IsFavorite(ctx, postID, userID)
}

func (s *PostService) FavoritePosts(ctx context.Context, userID string) ([]*models.Post, error) {
	return s.favRepo.FavoritePosts(ctx, userID)
}

func (s *PostService) ownedPost(ctx context.Context, postID, actorID, action string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if actorID == "" || post.AuthorID != actorID {
		return nil, models.NewForbiddenError(fmt.Sprintf("Only the author can %s this post", action))
	}
	return post, nil
}

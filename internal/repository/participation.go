package repository

import (
	"context"
	"errors"

	"damara/internal/cache"
	"damara/internal/models"
	"damara/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrAlreadyParticipant is returned when the user already joined the post.
	ErrAlreadyParticipant = errors.New("already participating")
	// ErrPostNotJoinable is returned when the post is not open or already full.
	ErrPostNotJoinable = errors.New("post is not open or already full")
	// ErrNotParticipant is returned when leaving a post the user never joined.
	ErrNotParticipant = errors.New("not a participant")
)

// ParticipationRepository stores who joined which group-buy.
type ParticipationRepository interface {
	Join(ctx context.Context, postID, userID string) error
	Leave(ctx context.Context, postID, userID string) error
	IsParticipant(ctx context.Context, postID, userID string) (bool, error)
	Participants(ctx context.Context, postID string) ([]*models.Participation, error)
	ParticipatedPosts(ctx context.Context, userID string) ([]*models.Post, error)
}

type participationRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewParticipationRepository creates a new participation repository
func NewParticipationRepository(db *gorm.DB) ParticipationRepository {
	return &participationRepository{db: db, log: observability.NewRepoLogger("participations")}
}

// Join inserts the participation and bumps the counter in one transaction.
// The counter only moves while the post is open and below its target, so
// concurrent joiners can never overfill a post.
func (r *participationRepository) Join(ctx context.Context, postID, userID string) error {
	defer observability.TrackQuery("join", "participations")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Participation{PostID: postID, UserID: userID})
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			return ErrAlreadyParticipant
		}

		upd := tx.Model(&models.Post{}).
			Where("id = ? AND status = ? AND current_quantity < min_participants", postID, models.StatusOpen).
			UpdateColumn("current_quantity", gorm.Expr("current_quantity + 1"))
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrPostNotJoinable
		}
		return nil
	})
	switch {
	case err == nil:
		cache.Invalidate(ctx, cache.PostKey(postID))
		return nil
	case errors.Is(err, ErrAlreadyParticipant), errors.Is(err, ErrPostNotJoinable):
		return err
	default:
		r.log.Error(ctx, "join", err, "post_id", postID, "user_id", userID)
		return models.NewInternalError(err)
	}
}

// Leave hard-deletes the participation and decrements the counter, never
// below zero.
func (r *participationRepository) Leave(ctx context.Context, postID, userID string) error {
	defer observability.TrackQuery("leave", "participations")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Participation{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			return ErrNotParticipant
		}
		return decrementQuantity(tx, postID)
	})
	switch {
	case err == nil:
		cache.Invalidate(ctx, cache.PostKey(postID))
		return nil
	case errors.Is(err, ErrNotParticipant):
		return err
	default:
		r.log.Error(ctx, "leave", err, "post_id", postID, "user_id", userID)
		return models.NewInternalError(err)
	}
}

func decrementQuantity(tx *gorm.DB, postID string) error {
	return tx.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("current_quantity",
			gorm.Expr("CASE WHEN current_quantity > 0 THEN current_quantity - 1 ELSE 0 END")).
		Error
}

func (r *participationRepository) IsParticipant(ctx context.Context, postID, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Participation{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *participationRepository) Participants(ctx context.Context, postID string) ([]*models.Participation, error) {
	var out []*models.Participation
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *participationRepository) ParticipatedPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	var posts []*models.Post
	err := withPostDetails(r.db.WithContext(ctx)).
		Select("posts.*").
		Joins("JOIN participations ON participations.post_id = posts.id").
		Where("participations.user_id = ?", userID).
		Order("participations.created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

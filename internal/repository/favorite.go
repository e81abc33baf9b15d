package repository

import (
	"context"

	"damara/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteRepository stores per-user bookmarks on posts.
type FavoriteRepository interface {
	Add(ctx context.Context, postID, userID string) error
	Remove(ctx context.Context, postID, userID string) error
	IsFavorite(ctx context.Context, postID, userID string) (bool, error)
	FavoritePosts(ctx context.Context, userID string) ([]*models.Post, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a new favorite repository
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// Add is idempotent: a second add for the same pair is a no-op.
func (r *favoriteRepository) Add(ctx context.Context, postID, userID string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Favorite{PostID: postID, UserID: userID}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *favoriteRepository) Remove(ctx context.Context, postID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Favorite{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *favoriteRepository) IsFavorite(ctx context.Context, postID, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Favorite{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *favoriteRepository) FavoritePosts(ctx context.Context, userID string) ([]*models.Post, error) {
	var posts []*models.Post
	err := withPostDetails(r.db.WithContext(ctx)).
		Select("posts.*").
		Joins("JOIN favorites ON favorites.post_id = posts.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"damara/internal/cache"
	"damara/internal/models"
	"damara/internal/observability"

	"gorm.io/gorm"
)

// ErrStatusChanged is returned when a post's status moved between read and write.
var ErrStatusChanged = errors.New("post status changed concurrently")

// ListFilter narrows a post listing.
type ListFilter struct {
	Limit    int
	Offset   int
	Category models.Category
	Status   models.Status
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Post, error)
	ListByStudentID(ctx context.Context, studentID string, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post, images []string) error
	UpdateStatus(ctx context.Context, id string, from, to models.Status) error
	Delete(ctx context.Context, id string) error
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func withPostDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		})
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	for i := range post.Images {
		post.Images[i].SortOrder = i
	}
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.Error(ctx, "create", err)
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostDetailTTL, func() error {
		if err := withPostDetails(r.db.WithContext(ctx)).First(&post, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter ListFilter) ([]*models.Post, error) {
	defer observability.TrackQuery("list", "posts")()
	q := withPostDetails(r.db.WithContext(ctx))
	if filter.Category != "" && filter.Category != models.CategoryAll {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var posts []*models.Post
	err := q.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByStudentID(ctx context.Context, studentID string, limit, offset int) ([]*models.Post, error) {
	defer observability.TrackQuery("list_by_student", "posts")()
	var posts []*models.Post
	err := withPostDetails(r.db.WithContext(ctx)).
		Select("posts.*").
		Joins("JOIN users ON users.id = posts.author_id").
		Where("users.student_id = ?", studentID).
		Order("posts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Update writes the descriptive fields of post. A nil images slice keeps the
// current images; a non-nil one replaces them in order. Counters, status and
// author are never written here.
func (r *postRepository) Update(ctx context.Context, post *models.Post, images []string) error {
	defer observability.TrackQuery("update", "posts")()
	post.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{ID: post.ID}).
			Select("Title", "Content", "Price", "Deadline", "PickupLocation", "Category", "UpdatedAt").
			Updates(post).Error; err != nil {
			return err
		}
		if images == nil {
			return nil
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostImage{}).Error; err != nil {
			return err
		}
		post.Images = make([]models.PostImage, 0, len(images))
		for i, url := range images {
			post.Images = append(post.Images, models.PostImage{PostID: post.ID, ImageURL: url, SortOrder: i})
		}
		if len(post.Images) == 0 {
			return nil
		}
		return tx.Create(&post.Images).Error
	})
	if err != nil {
		r.log.Error(ctx, "update", err, "post_id", post.ID)
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(post.ID))
	return nil
}

// UpdateStatus moves a post from one status to another. It fails with
// ErrStatusChanged when the stored status is no longer from.
func (r *postRepository) UpdateStatus(ctx context.Context, id string, from, to models.Status) error {
	defer observability.TrackQuery("update_status", "posts")()
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		r.log.Error(ctx, "update_status", res.Error, "post_id", id)
		return models.NewInternalError(res.Error)
	}
	cache.Invalidate(ctx, cache.PostKey(id))
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "posts")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deletePostTx(tx, id)
	})
	if err != nil {
		r.log.Error(ctx, "delete", err, "post_id", id)
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(id))
	return nil
}

// deletePostTx removes a post and everything hanging off it.
func deletePostTx(tx *gorm.DB, postID string) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.Participation{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.Favorite{}).Error; err != nil {
		return err
	}
	roomIDs := tx.Model(&models.ChatRoom{}).Select("id").Where("post_id = ?", postID)
	if err := tx.Where("chat_room_id IN (?)", roomIDs).Delete(&models.Message{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.ChatRoom{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostImage{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Post{}, "id = ?", postID).Error
}

package repository

import (
	"context"
	"errors"

	"damara/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	GetOrCreateRoom(ctx context.Context, postID string) (*models.ChatRoom, error)
	GetRoom(ctx context.Context, id string) (*models.ChatRoom, error)
	ListRooms(ctx context.Context, userID string) ([]*models.ChatRoom, error)
	DeleteRoom(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetMessages(ctx context.Context, roomID string, limit, offset int) ([]*models.Message, error)
	MarkMessageRead(ctx context.Context, msgID string) error
	MarkAllRead(ctx context.Context, roomID, readerID string) (int64, error)
	UnreadCount(ctx context.Context, roomID, readerID string) (int64, error)
	DeleteMessage(ctx context.Context, id string) error
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// GetOrCreateRoom returns the post's room, creating it on first use. The
// unique index on post_id settles races between two creators.
func (r *chatRepository) GetOrCreateRoom(ctx context.Context, postID string) (*models.ChatRoom, error) {
	db := r.db.WithContext(ctx)
	room := &models.ChatRoom{PostID: postID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(room).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var stored models.ChatRoom
	if err := db.Where("post_id = ?", postID).First(&stored).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &stored, nil
}

func (r *chatRepository) GetRoom(ctx context.Context, id string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).Preload("Post").First(&room, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("ChatRoom", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &room, nil
}

// ListRooms returns the rooms of posts the user wrote or joined.
func (r *chatRepository) ListRooms(ctx context.Context, userID string) ([]*models.ChatRoom, error) {
	var rooms []*models.ChatRoom
	err := r.db.WithContext(ctx).
		Preload("Post").
		Select("chat_rooms.*").
		Joins("JOIN posts ON posts.id = chat_rooms.post_id").
		Where("posts.author_id = ? OR EXISTS (SELECT 1 FROM participations p WHERE p.post_id = posts.id AND p.user_id = ?)",
			userID, userID).
		Order("chat_rooms.created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rooms, nil
}

func (r *chatRepository) DeleteRoom(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_room_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.ChatRoom{}, "id = ?", id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("ChatRoom", id)
		}
		return nil
	})
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Message", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

func (r *chatRepository) GetMessages(ctx context.Context, roomID string, limit, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Where("chat_room_id = ?", roomID).
		Preload("Sender").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	// Fetched newest first to page from the end; callers want oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *chatRepository) MarkMessageRead(ctx context.Context, msgID string) error {
	res := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", msgID).Update("is_read", true)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Message", msgID)
	}
	return nil
}

// MarkAllRead marks every message in the room not sent by readerID as read.
func (r *chatRepository) MarkAllRead(ctx context.Context, roomID, readerID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("chat_room_id = ? AND sender_id <> ? AND is_read = ?", roomID, readerID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *chatRepository) UnreadCount(ctx context.Context, roomID, readerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("chat_room_id = ? AND sender_id <> ? AND is_read = ?", roomID, readerID, false).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *chatRepository) DeleteMessage(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Message{}, "id = ?", id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Message", id)
	}
	return nil
}

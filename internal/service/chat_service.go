package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"damara/internal/models"
	"damara/internal/observability"
	"damara/internal/repository"
)

const maxMessageLen = 1000

// RoomWaiter blocks until a room sees a new message. *notifications.Notifier
// satisfies it.
type RoomWaiter interface {
	Enabled() bool
	WaitForRoom(ctx context.Context, roomID string, timeout time.Duration) (string, error)
}

type ChatService struct {
	chatRepo  repository.ChatRepository
	postRepo  repository.PostRepository
	publisher Publisher
	waiter    RoomWaiter
}

type SendMessageInput struct {
	ChatRoomID  string
	SenderID    string
	Content     string
	MessageType string
}

func NewChatService(chatRepo repository.ChatRepository, postRepo repository.PostRepository, publisher Publisher, waiter RoomWaiter) *ChatService {
	return &ChatService{chatRepo: chatRepo, postRepo: postRepo, publisher: publisher, waiter: waiter}
}

// RoomForPost returns the post's chat room, creating it on first use.
func (s *ChatService) RoomForPost(ctx context.Context, postID string) (*models.ChatRoom, error) {
	if strings.TrimSpace(postID) == "" {
		return nil, models.NewValidationError("postId is required")
	}
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.chatRepo.GetOrCreateRoom(ctx, postID)
}

func (s *ChatService) GetRoom(ctx context.Context, id string) (*models.ChatRoom, error) {
	return s.chatRepo.GetRoom(ctx, id)
}

func (s *ChatService) ListRooms(ctx context.Context, userID string) ([]*models.ChatRoom, error) {
	if userID == "" {
		return nil, models.NewValidationError("userId is required")
	}
	return s.chatRepo.ListRooms(ctx, userID)
}

func (s *ChatService) DeleteRoom(ctx context.Context, id string) error {
	return s.chatRepo.DeleteRoom(ctx, id)
}

func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if in.ChatRoomID == "" || in.SenderID == "" || content == "" {
		return nil, models.NewValidationError("chatRoomId, senderId and content are required")
	}
	if utf8.RuneCountInString(content) > maxMessageLen {
		return nil, models.NewValidationError("Message too long (max 1000 characters)")
	}
	if _, err := s.chatRepo.GetRoom(ctx, in.ChatRoomID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ChatRoomID:  in.ChatRoomID,
		SenderID:    in.SenderID,
		Content:     content,
		MessageType: in.MessageType,
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishChatMessage(ctx, msg.ChatRoomID, msg); err != nil {
			observability.Logger.WarnContext(ctx, "failed to publish chat message",
				"room_id", msg.ChatRoomID, "error", err)
		}
	}
	return msg, nil
}

func (s *ChatService) GetMessages(ctx context.Context, roomID string, limit, offset int) ([]*models.Message, error) {
	if _, err := s.chatRepo.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.chatRepo.GetMessages(ctx, roomID, limit, offset)
}

// WaitForMessages blocks until a message is published to the room or the
// timeout passes. Without a broker it simply waits out the timeout, so
// callers degrade to interval polling.
func (s *ChatService) WaitForMessages(ctx context.Context, roomID string, timeout time.Duration) (bool, error) {
	if s.waiter == nil || !s.waiter.Enabled() {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-t.C:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	payload, err := s.waiter.WaitForRoom(ctx, roomID, timeout)
	if err != nil {
		return false, err
	}
	return payload != "", nil
}

func (s *ChatService) MarkRead(ctx context.Context, msgID string) error {
	return s.chatRepo.MarkMessageRead(ctx, msgID)
}

func (s *ChatService) MarkAllRead(ctx context.Context, roomID, readerID string) (int64, error) {
	if readerID == "" {
		return 0, models.NewValidationError("userId is required")
	}
	return s.chatRepo.MarkAllRead(ctx, roomID, readerID)
}

func (s *ChatService) UnreadCount(ctx context.Context, roomID, readerID string) (int64, error) {
	if readerID == "" {
		return 0, models.NewValidationError("userId is required")
	}
	return s.chatRepo.UnreadCount(ctx, roomID, readerID)
}

// DeleteMessage removes a message. When actorID is set only the sender may
// delete it.
func (s *ChatService) DeleteMessage(ctx context.Context, msgID, actorID string) error {
	msg, err := s.chatRepo.GetMessage(ctx, msgID)
	if err != nil {
		return err
	}
	if actorID != "" && msg.SenderID != actorID {
		return models.NewForbiddenError("Only the sender can delete this message")
	}
	return s.chatRepo.DeleteMessage(ctx, msgID)
}

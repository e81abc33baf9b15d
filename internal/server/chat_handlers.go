package server

import (
	"errors"
	"strconv"
	"time"

	"damara/internal/notifications"
	"damara/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultWaitTimeout = 25 * time.Second
	maxWaitTimeout     = 60 * time.Second
)

type createRoomRequest struct {
	ChatRoom *struct {
		PostID string `json:"postId"`
	} `json:"chatRoom"`
}

type sendMessageRequest struct {
	Message *struct {
		ChatRoomID  string `json:"chatRoomId"`
		SenderID    string `json:"senderId"`
		Content     string `json:"content"`
		MessageType string `json:"messageType"`
	} `json:"message"`
}

// GetChatRooms handles GET /api/chat/rooms?userId=
func (s *Server) GetChatRooms(c *fiber.Ctx) error {
	userID, err := headerUser(c)
	if err != nil {
		return respondError(c, err)
	}
	rooms, err := s.chatService.ListRooms(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rooms)
}

// CreateChatRoom handles POST /api/chat/rooms
func (s *Server) CreateChatRoom(c *fiber.Ctx) error {
	var req createRoomRequest
	if err := c.BodyParser(&req); err != nil || req.ChatRoom == nil {
		return badRequest(c, "Invalid request body")
	}
	room, err := s.chatService.RoomForPost(c.UserContext(), req.ChatRoom.PostID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// GetChatRoomByPost handles GET /api/chat/rooms/post/:postId
func (s *Server) GetChatRoomByPost(c *fiber.Ctx) error {
	room, err := s.chatService.RoomForPost(c.UserContext(), c.Params("postId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// GetChatRoom handles GET /api/chat/rooms/:id
func (s *Server) GetChatRoom(c *fiber.Ctx) error {
	room, err := s.chatService.GetRoom(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// DeleteChatRoom handles DELETE /api/chat/rooms/:id
func (s *Server) DeleteChatRoom(c *fiber.Ctx) error {
	if err := s.chatService.DeleteRoom(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Chat room deleted successfully"})
}

// SendMessage handles POST /api/chat/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil || req.Message == nil {
		return badRequest(c, "Invalid request body")
	}
	m := req.Message
	senderID, err := actingUser(c, m.SenderID)
	if err != nil {
		return respondError(c, err)
	}

	msg, err := s.chatService.SendMessage(c.UserContext(), service.SendMessageInput{
		ChatRoomID:  m.ChatRoomID,
		SenderID:    senderID,
		Content:     m.Content,
		MessageType: m.MessageType,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetMessages handles GET /api/chat/rooms/:id/messages
func (s *Server) GetMessages(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	msgs, err := s.chatService.GetMessages(c.UserContext(), c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// parseWaitTimeout reads bare integers as seconds and anything else as a
// Go duration.
func parseWaitTimeout(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

// WaitForMessages handles GET /api/chat/rooms/:id/messages/wait?timeout=25.
// It answers {changed:true} as soon as a message is published to the room
// and {changed:false} when the timeout passes first.
func (s *Server) WaitForMessages(c *fiber.Ctx) error {
	timeout := defaultWaitTimeout
	if raw := c.Query("timeout"); raw != "" {
		d, err := parseWaitTimeout(raw)
		if err != nil || d <= 0 {
			return badRequest(c, "Invalid timeout")
		}
		timeout = min(d, maxWaitTimeout)
	}
	if _, err := s.chatService.GetRoom(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}

	changed, err := s.chatService.WaitForMessages(c.UserContext(), c.Params("id"), timeout)
	if err != nil && !errors.Is(err, notifications.ErrNoBroker) {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"changed": changed})
}

// MarkMessageRead handles PATCH /api/chat/messages/:id/read
func (s *Server) MarkMessageRead(c *fiber.Ctx) error {
	if err := s.chatService.MarkRead(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message marked as read"})
}

// MarkAllMessagesRead handles PATCH /api/chat/rooms/:id/read-all
func (s *Server) MarkAllMessagesRead(c *fiber.Ctx) error {
	var req userIDRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	userID, err := actingUser(c, req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	n, err := s.chatService.MarkAllRead(c.UserContext(), c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

// GetUnreadCount handles GET /api/chat/rooms/:id/unread-count?userId=
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := actingUser(c, c.Query("userId"))
	if err != nil {
		return respondError(c, err)
	}
	n, err := s.chatService.UnreadCount(c.UserContext(), c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unreadCount": n})
}

// DeleteMessage handles DELETE /api/chat/messages/:id
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	if err := s.chatService.DeleteMessage(c.UserContext(), c.Params("id"), tokenUser(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted successfully"})
}

package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"damara/internal/models"
)

func (c *Client) ChatRooms(ctx context.Context, userID string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := c.doList(ctx, request{method: http.MethodGet, path: "/chat/rooms", query: url.Values{"userId": {userID}}}, &rooms)
	return rooms, err
}

// ChatRoomForPost returns the room of a post, creating it on first use.
func (c *Client) ChatRoomForPost(ctx context.Context, postID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("/chat/rooms/post/%s", postID)}, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) CreateChatRoom(ctx context.Context, postID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	body := map[string]any{"chatRoom": map[string]string{"postId": postID}}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/chat/rooms", body: body}, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) Messages(ctx context.Context, roomID string, limit, offset int) ([]models.Message, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var msgs []models.Message
	err := c.doList(ctx, request{method: http.MethodGet, path: pathf("/chat/rooms/%s/messages", roomID), query: q}, &msgs)
	return msgs, err
}

func (c *Client) SendMessage(ctx context.Context, roomID, senderID, content string) (*models.Message, error) {
	var msg models.Message
	body := map[string]any{"message": map[string]string{
		"chatRoomId":  roomID,
		"senderId":    senderID,
		"content":     content,
		"messageType": models.MessageTypeText,
	}}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/chat/messages", body: body}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// WaitForMessages long-polls the room and reports whether a message arrived
// before timeout.
func (c *Client) WaitForMessages(ctx context.Context, roomID string, timeout time.Duration) (bool, error) {
	var res struct {
		Changed bool `json:"changed"`
	}
	q := url.Values{"timeout": {timeout.String()}}
	err := c.do(ctx, request{method: http.MethodGet, path: pathf("/chat/rooms/%s/messages/wait", roomID), query: q}, &res)
	return res.Changed, err
}

func (c *Client) MarkMessageRead(ctx context.Context, messageID string) error {
	return c.do(ctx, request{method: http.MethodPatch, path: pathf("/chat/messages/%s/read", messageID)}, nil)
}

func (c *Client) MarkRoomRead(ctx context.Context, roomID, userID string) error {
	body := map[string]string{"userId": userID}
	return c.do(ctx, request{method: http.MethodPatch, path: pathf("/chat/rooms/%s/read-all", roomID), body: body}, nil)
}

func (c *Client) UnreadCount(ctx context.Context, roomID, userID string) (int64, error) {
	var res struct {
		UnreadCount int64 `json:"unreadCount"`
	}
	q := url.Values{"userId": {userID}}
	err := c.do(ctx, request{method: http.MethodGet, path: pathf("/chat/rooms/%s/unread-count", roomID), query: q}, &res)
	return res.UnreadCount, err
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("/chat/messages/%s", messageID)}, nil)
}

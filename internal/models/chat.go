package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageTypeText is the default chat message type.
const MessageTypeText = "text"

// ChatRoom is the conversation attached to a post. There is at most one per post.
type ChatRoom struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PostID    string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"postId"`
	Post      *Post     `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is a chat message in a room.
type Message struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChatRoomID  string    `gorm:"type:varchar(36);not null;index" json:"chatRoomId"`
	SenderID    string    `gorm:"type:varchar(36);not null;index" json:"senderId"`
	Sender      *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	MessageType string    `gorm:"type:varchar(16);not null;default:text" json:"messageType"`
	IsRead      bool      `gorm:"not null;default:false" json:"isRead"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
}

func (r *ChatRoom) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.MessageType == "" {
		m.MessageType = MessageTypeText
	}
	return nil
}

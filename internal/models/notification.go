package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types.
const (
	NotificationParticipantJoined = "participant_joined"
	NotificationParticipantLeft   = "participant_left"
	NotificationStatusChanged     = "status_changed"
)

// Notification is an in-app notice for a single user.
type Notification struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"userId"`
	Type      string    `gorm:"type:varchar(32);not null" json:"type"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	PostID    string    `gorm:"type:varchar(36);index" json:"postId,omitempty"`
	IsRead    bool      `gorm:"not null;default:false" json:"isRead"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

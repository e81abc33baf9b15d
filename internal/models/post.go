// Package models contains data structures for the group-buy domain shared
// by the API server and its clients.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a group-buy listing.
type Post struct {
	ID              string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	AuthorID        string      `gorm:"type:varchar(36);not null;index" json:"authorId"`
	Author          *User       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title           string      `gorm:"not null" json:"title"`
	Content         string      `gorm:"type:text;not null" json:"content"`
	Price           int64       `gorm:"not null;default:0" json:"price"`
	MinParticipants int         `gorm:"not null" json:"minParticipants"`
	CurrentQuantity int         `gorm:"not null;default:0" json:"currentQuantity"`
	Deadline        time.Time   `json:"deadline"`
	PickupLocation  string      `json:"pickupLocation"`
	Images          []PostImage `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"images"`
	Category        Category    `gorm:"type:varchar(32);index" json:"category,omitempty"`
	Status          Status      `gorm:"type:varchar(16);not null;default:open;index" json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// PostImage is one ordered image descriptor of a post.
type PostImage struct {
	ID        string `gorm:"type:varchar(36);primaryKey" json:"id"`
	PostID    string `gorm:"type:varchar(36);not null;index" json:"postId"`
	ImageURL  string `gorm:"not null" json:"imageUrl"`
	SortOrder int    `gorm:"not null;default:0" json:"sortOrder"`
}

func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (i *PostImage) BeforeCreate(_ *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// RecruitmentComplete reports whether the participant target is reached.
func (p *Post) RecruitmentComplete() bool {
	return p.CurrentQuantity >= p.MinParticipants
}

// HasCapacity reports whether one more participant fits.
func (p *Post) HasCapacity() bool {
	return p.CurrentQuantity < p.MinParticipants
}

// ImageURLs returns the image URLs in display order.
func (p *Post) ImageURLs() []string {
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if img.ImageURL != "" {
			urls = append(urls, img.ImageURL)
		}
	}
	return urls
}

// Participation records that a user joined a post. Removing it is a hard delete.
type Participation struct {
	PostID    string    `gorm:"type:varchar(36);primaryKey" json:"postId"`
	UserID    string    `gorm:"type:varchar(36);primaryKey;index" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Favorite records a user's bookmark on a post.
type Favorite struct {
	PostID    string    `gorm:"type:varchar(36);primaryKey" json:"postId"`
	UserID    string    `gorm:"type:varchar(36);primaryKey;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

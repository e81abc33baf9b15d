// Package validation provides input validation utilities shared by the API
// server and the terminal client.
package validation

import (
	"fmt"
	"strings"
	"time"

	"damara/internal/models"
)

// MaxPostImages is the number of images a post may carry.
const MaxPostImages = 5

const (
	maxTitleLen    = 100
	maxContentLen  = 5000
	maxLocationLen = 200
)

// PostDraft is the create-post form before it is turned into a Post.
type PostDraft struct {
	AuthorID        string
	Title           string
	Content         string
	Price           int64
	MinParticipants int
	Deadline        time.Time
	PickupLocation  string
	Images          []string
	Category        models.Category
}

// Normalize trims text fields, drops empty image entries, defaults the
// content to the title and maps unknown categories to etc.
func (d *PostDraft) Normalize() {
	d.AuthorID = strings.TrimSpace(d.AuthorID)
	d.Title = strings.TrimSpace(d.Title)
	d.Content = strings.TrimSpace(d.Content)
	d.PickupLocation = strings.TrimSpace(d.PickupLocation)
	if d.Content == "" {
		d.Content = d.Title
	}
	images := d.Images[:0:0]
	for _, img := range d.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	d.Images = images
	d.Category = models.NormalizeCategory(d.Category)
}

// ValidatePostDraft checks a normalized draft.
func ValidatePostDraft(d PostDraft) error {
	if d.AuthorID == "" {
		return fmt.Errorf("authorId is required")
	}
	if d.Title == "" || d.PickupLocation == "" || d.Deadline.IsZero() {
		return fmt.Errorf("title, price, deadline, pickupLocation and minParticipants are required")
	}
	if len([]rune(d.Title)) > maxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", maxTitleLen)
	}
	if len([]rune(d.Content)) > maxContentLen {
		return fmt.Errorf("content must not exceed %d characters", maxContentLen)
	}
	if len([]rune(d.PickupLocation)) > maxLocationLen {
		return fmt.Errorf("pickupLocation must not exceed %d characters", maxLocationLen)
	}
	if d.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if d.MinParticipants <= 0 {
		return fmt.Errorf("minParticipants must be a positive number")
	}
	if len(d.Images) == 0 {
		return fmt.Errorf("at least one image is required")
	}
	if len(d.Images) > MaxPostImages {
		return fmt.Errorf("a post can have at most %d images", MaxPostImages)
	}
	return nil
}

package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"damara/internal/models"
)

// ListOptions filters GET /posts.
type ListOptions struct {
	Limit    int
	Offset   int
	Category models.Category
	Status   models.Status
}

// PostInput is the create-post payload.
type PostInput struct {
	AuthorID        string          `json:"authorId"`
	Title           string          `json:"title"`
	Content         string          `json:"content,omitempty"`
	Price           int64           `json:"price"`
	MinParticipants int             `json:"minParticipants"`
	Deadline        string          `json:"deadline"`
	PickupLocation  string          `json:"pickupLocation"`
	Images          []string        `json:"images"`
	Category        models.Category `json:"category,omitempty"`
}

// PostUpdate carries the fields to change; nil fields are left alone.
type PostUpdate struct {
	AuthorID       string           `json:"authorId,omitempty"`
	Title          *string          `json:"title,omitempty"`
	Content        *string          `json:"content,omitempty"`
	Price          *int64           `json:"price,omitempty"`
	Deadline       *string          `json:"deadline,omitempty"`
	PickupLocation *string          `json:"pickupLocation,omitempty"`
	Category       *models.Category `json:"category,omitempty"`
	Images         []string         `json:"images,omitempty"`
}

// ParticipationResult is the reply to join and leave.
type ParticipationResult struct {
	Message         string       `json:"message"`
	Post            *models.Post `json:"post"`
	CurrentQuantity int          `json:"currentQuantity"`
}

func (c *Client) ListPosts(ctx context.Context, opts ListOptions) ([]models.Post, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Category != "" && opts.Category != models.CategoryAll {
		q.Set("category", string(opts.Category))
	}
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	var posts []models.Post
	err := c.doList(ctx, request{method: http.MethodGet, path: "/posts", query: q}, &posts)
	return posts, err
}

func (c *Client) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("/posts/%s", id)}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) PostsByStudent(ctx context.Context, studentID string) ([]models.Post, error) {
	var posts []models.Post
	err := c.doList(ctx, request{method: http.MethodGet, path: pathf("/posts/student/%s", studentID)}, &posts)
	return posts, err
}

func (c *Client) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	var post models.Post
	body := map[string]any{"post": in}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/posts", body: body}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost sends the changed fields flat, as the web client does.
func (c *Client) UpdatePost(ctx context.Context, id string, in PostUpdate) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, request{method: http.MethodPut, path: pathf("/posts/%s", id), body: in}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) DeletePost(ctx context.Context, id, authorID string) error {
	q := url.Values{}
	if authorID != "" {
		q.Set("authorId", authorID)
	}
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("/posts/%s", id), query: q}, nil)
}

func (c *Client) ChangeStatus(ctx context.Context, postID string, status models.Status, authorID string) (*models.Post, error) {
	var post models.Post
	body := map[string]string{"status": string(status), "authorId": authorID}
	if err := c.do(ctx, request{method: http.MethodPatch, path: pathf("/posts/%s/status", postID), body: body}, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) Join(ctx context.Context, postID, userID string) (*ParticipationResult, error) {
	var res ParticipationResult
	body := map[string]string{"userId": userID}
	if err := c.do(ctx, request{method: http.MethodPost, path: pathf("/posts/%s/participate", postID), body: body}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Leave(ctx context.Context, postID, userID string) (*ParticipationResult, error) {
	var res ParticipationResult
	if err := c.do(ctx, request{method: http.MethodDelete, path: pathf("/posts/%s/participate/%s", postID, userID)}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) IsParticipant(ctx context.Context, postID, userID string) (bool, error) {
	var res struct {
		IsParticipant bool `json:"isParticipant"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: pathf("/posts/%s/participate/%s", postID, userID)}, &res)
	return res.IsParticipant, err
}

func (c *Client) Participants(ctx context.Context, postID string) ([]models.Participation, error) {
	var out []models.Participation
	err := c.doList(ctx, request{method: http.MethodGet, path: pathf("/posts/%s/participants", postID)}, &out)
	return out, err
}

func (c *Client) ParticipatedPosts(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	err := c.doList(ctx, request{method: http.MethodGet, path: pathf("/posts/user/%s/participated", userID)}, &posts)
	return posts, err
}

func (c *Client) AddFavorite(ctx context.Context, postID, userID string) error {
	body := map[string]string{"userId": userID}
	return c.do(ctx, request{method: http.MethodPost, path: pathf("/posts/%s/favorite", postID), body: body}, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, postID, userID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("/posts/%s/favorite/%s", postID, userID)}, nil)
}

func (c *Client) IsFavorite(ctx context.Context, postID, userID string) (bool, error) {
	var res struct {
		IsFavorite bool `json:"isFavorite"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: pathf("/posts/%s/favorite/%s", postID, userID)}, &res)
	return res.IsFavorite, err
}

// favoriteListPaths are tried in order; older backends only expose the later ones.
var favoriteListPaths = []string{
	"/posts/user/%s/favorites",
	"/users/%s/favorites",
	"/favorites/%s",
}

// FavoritePosts lists the posts userID marked. It moves to the next
// candidate endpoint only on 404 and reports the first error when none
// answers.
func (c *Client) FavoritePosts(ctx context.Context, userID string) ([]models.Post, error) {
	var firstErr error
	for _, p := range favoriteListPaths {
		var posts []models.Post
		err := c.doList(ctx, request{method: http.MethodGet, path: pathf(p, userID)}, &posts)
		if err == nil {
			return posts, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if !IsStatus(err, http.StatusNotFound) {
			return nil, err
		}
	}
	return nil, firstErr
}

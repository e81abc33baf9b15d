package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"damara/internal/models"
)

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Nickname   string `json:"nickname"`
	StudentID  string `json:"studentId"`
	Department string `json:"department,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
}

// UserUpdate carries the profile fields to change.
type UserUpdate struct {
	Nickname   *string `json:"nickname,omitempty"`
	Department *string `json:"department,omitempty"`
	AvatarURL  *string `json:"avatarUrl,omitempty"`
}

// LoginResult is the profile returned on login plus the session token.
type LoginResult struct {
	models.User
	Token string `json:"token"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, request{method: http.MethodPost, path: "/users", body: map[string]any{"user": in}}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Login(ctx context.Context, studentID, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"studentId": studentID, "password": password}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/users/login", body: body}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("/users/%s", id)}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, in UserUpdate) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, request{method: http.MethodPut, path: pathf("/users/%s", id), body: map[string]any{"user": in}}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("/users/%s", id)}, nil)
}

// UploadImage sends one image and returns its URL.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	body, contentType, err := multipartBody("image", map[string]io.Reader{filename: r})
	if err != nil {
		return "", err
	}
	var res struct {
		URL      string `json:"url"`
		ImageURL string `json:"imageUrl"`
	}
	err = c.do(ctx, request{method: http.MethodPost, path: "/upload/image", raw: body, contentType: contentType}, &res)
	if err != nil {
		return "", err
	}
	if res.URL != "" {
		return res.URL, nil
	}
	return res.ImageURL, nil
}

// UploadImages sends several images in one request.
func (c *Client) UploadImages(ctx context.Context, files map[string]io.Reader) ([]string, error) {
	body, contentType, err := multipartBody("images", files)
	if err != nil {
		return nil, err
	}
	var res struct {
		ImageURLs []string `json:"imageUrls"`
	}
	err = c.do(ctx, request{method: http.MethodPost, path: "/upload/images", raw: body, contentType: contentType}, &res)
	return res.ImageURLs, err
}

func multipartBody(field string, files map[string]io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, r := range files {
		part, err := w.CreateFormFile(field, name)
		if err != nil {
			return nil, "", fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, r); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) Notifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	q := url.Values{}
	if unreadOnly {
		q.Set("unreadOnly", "true")
	}
	var out []models.Notification
	err := c.doList(ctx, request{method: http.MethodGet, path: "/notifications", query: q, userID: userID}, &out)
	return out, err
}

func (c *Client) NotificationUnreadCount(ctx context.Context, userID string) (int64, error) {
	var res struct {
		UnreadCount int64 `json:"unreadCount"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "/notifications/unread-count", userID: userID}, &res)
	return res.UnreadCount, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, userID, id string) error {
	return c.do(ctx, request{method: http.MethodPatch, path: pathf("/notifications/%s/read", id), userID: userID}, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return c.do(ctx, request{method: http.MethodPatch, path: "/notifications/read-all", userID: userID}, nil)
}

func (c *Client) DeleteNotification(ctx context.Context, userID, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("/notifications/%s", id), userID: userID}, nil)
}

// Package client is a typed HTTP client for the group-buy REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 8 << 20
)

// TokenSource supplies the identity attached to each request. The session
// implements it.
type TokenSource interface {
	Token() string
	CurrentUserID() string
}

// APIError is a non-2xx response. Message comes from the body's "error"
// field, then "message", then the status text.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client talks to the API under baseURL + "/api".
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource attaches bearer tokens and x-user-id from ts.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New creates a client for baseURL, e.g. "http://localhost:8380".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// userID overrides the token source's x-user-id.
	userID string
	// raw, when set, is sent as-is with contentType.
	raw         io.Reader
	contentType string
}

func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	target := c.baseURL + "/api" + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	contentType := r.contentType
	switch {
	case r.raw != nil:
		body = r.raw
	case r.body != nil:
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	userID := r.userID
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		if userID == "" {
			userID = c.tokens.CurrentUserID()
		}
	}
	if userID != "" {
		req.Header.Set("x-user-id", userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, newAPIError(resp.StatusCode, raw)
	}
	return raw, nil
}

func newAPIError(status int, raw []byte) *APIError {
	e := &APIError{StatusCode: status}
	if gjson.ValidBytes(raw) {
		e.Message = gjson.GetBytes(raw, "error").String()
		if e.Message == "" {
			e.Message = gjson.GetBytes(raw, "message").String()
		}
		e.Code = gjson.GetBytes(raw, "code").String()
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// do sends r and decodes a JSON object response into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	raw, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// listKeys are the envelope fields a list may arrive under.
var listKeys = []string{"posts", "favorites", "data"}

// doList sends r and decodes a list that is either a bare array or wrapped
// in an object under one of listKeys.
func (c *Client) doList(ctx context.Context, r request, out any) error {
	raw, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	return decodeList(raw, out)
}

func decodeList(raw []byte, out any) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("failed to decode list: invalid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		found := false
		for _, key := range listKeys {
			if v := doc.Get(key); v.IsArray() {
				doc, found = v, true
				break
			}
		}
		if !found {
			return fmt.Errorf("failed to decode list: no array in response")
		}
	}
	if err := json.Unmarshal([]byte(doc.Raw), out); err != nil {
		return fmt.Errorf("failed to decode list: %w", err)
	}
	return nil
}

func pathf(format string, args ...string) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(a)
	}
	return fmt.Sprintf(format, escaped...)
}

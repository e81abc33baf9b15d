package server

import (
	"errors"
	"strings"
	"time"

	"damara/internal/models"
	"damara/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	defaultPageLimit   = 20
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// respondError writes err with the status it maps to. Internal errors are
// logged with their cause, which never reaches the client.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	}

	// The web client branches on the code carried in "error" for duplicate accounts.
	var appErr *models.AppError
	if errors.As(err, &appErr) &&
		(appErr.Code == models.CodeEmailExists || appErr.Code == models.CodeStudentIDExists) {
		return c.Status(status).JSON(fiber.Map{
			"error":   appErr.Code,
			"code":    appErr.Code,
			"message": appErr.Message,
		})
	}
	return models.RespondWithError(c, status, err)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return respondError(c, models.NewValidationError(msg))
}

// tokenUser is the subject of a verified bearer token, or "".
func tokenUser(c *fiber.Ctx) string {
	uid, _ := c.Locals("userID").(string)
	return uid
}

// actingUser resolves who performs a request. A verified token wins; a
// claimed id that disagrees with it is rejected. Without a token the
// claimed id is trusted, as the web client sends it in bodies and paths.
func actingUser(c *fiber.Ctx, claimed string) (string, error) {
	claimed = strings.TrimSpace(claimed)
	sub := tokenUser(c)
	switch {
	case sub != "" && claimed != "" && sub != claimed:
		return "", models.NewForbiddenError("Token does not match the acting user")
	case sub != "":
		return sub, nil
	case claimed == "":
		return "", models.NewValidationError("userId is required")
	}
	return claimed, nil
}

// headerUser resolves the user of notification routes from the token, the
// x-user-id header or the userId query parameter.
func headerUser(c *fiber.Ctx) (string, error) {
	claimed := c.Get("x-user-id")
	if claimed == "" {
		claimed = c.Query("userId")
	}
	return actingUser(c, claimed)
}

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDeadline accepts RFC 3339 and the date/datetime-local shapes sent by
// HTML forms. Zoneless values are read as local time.
func parseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, models.NewValidationError("Invalid deadline format")
}

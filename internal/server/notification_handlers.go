package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /notifications
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	userID, err := headerUser(c)
	if err != nil {
		return respondError(c, err)
	}
	page := parsePagination(c, defaultPageLimit)
	list, err := s.noticeService.List(c.UserContext(), userID, page.Limit, page.Offset, c.QueryBool("unreadOnly", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// GetNotificationUnreadCount handles GET /notifications/unread-count
func (s *Server) GetNotificationUnreadCount(c *fiber.Ctx) error {
	userID, err := headerUser(c)
	if err != nil {
		return respondError(c, err)
	}
	n, err := s.noticeService.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unreadCount": n})
}

// MarkAllNotificationsRead handles PATCH /notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID, err := headerUser(c)
	if err != nil {
		return respondError(c, err)
	}
	n, err := s.noticeService.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}

// MarkNotificationRead handles PATCH /notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	userID, err := headerUser(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.noticeService.MarkRead(c.UserContext(), c.Params("id"), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

// DeleteNotification handles DELETE /notifications/:id
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	userID, err := headerUser(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.noticeService.Delete(c.UserContext(), c.Params("id"), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification deleted"})
}

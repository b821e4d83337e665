package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications. ?unread=true limits to unread.
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	list, err := s.notifications.List(c.UserContext(), userIDFrom(c), c.QueryBool("unread", false))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(list)
}

// GetUnreadCount handles GET /api/notifications/unread-count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	n, err := s.notifications.UnreadCount(c.UserContext(), userIDFrom(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"unread": n})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	n, err := s.notifications.MarkRead(c.UserContext(), userIDFrom(c), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(n)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	updated, err := s.notifications.MarkAllRead(c.UserContext(), userIDFrom(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}

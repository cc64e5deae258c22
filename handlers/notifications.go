// handlers/notifications.go
package handlers

import (
	"skillquest/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications returns the user's notifications, newest first, with
// the unread count.
func GetNotifications(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	limit, offset := parsePagination(c, 25, 100)
	unreadOnly := c.QueryBool("unread_only", false)

	notifications, unread, err := notificationService.List(userID, limit, offset, unreadOnly)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// MarkNotificationRead marks one notification as read.
func MarkNotificationRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	notificationID, err := c.ParamsInt("id")
	if err != nil || notificationID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid notification ID"})
	}

	if err := notificationService.MarkRead(userID, uint(notificationID)); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// MarkAllNotificationsRead marks every unread notification as read.
func MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	updated, err := notificationService.MarkAllRead(userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "updated": updated})
}

// handlers/daily.go
package handlers

import (
	"skillquest/middleware"

	"github.com/gofiber/fiber/v2"
)

// ClaimDailyReward claims today's login reward. Safe to call repeatedly;
// repeats report already_claimed instead of paying twice.
func ClaimDailyReward(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	result, err := streakService.ClaimDaily(userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": !result.AlreadyClaimed,
		"reward":  result,
	})
}

// GetStreakStatus reports the streak without claiming.
func GetStreakStatus(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	status, err := streakService.Status(userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "streak": status})
}

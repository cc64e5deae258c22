// handlers/progression.go
package handlers

import (
	"skillquest/database"
	"skillquest/middleware"
	"skillquest/models"
	"skillquest/services"

	"github.com/gofiber/fiber/v2"
)

type AwardXPRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
	Source string `json:"source"`
}

var awardableSources = map[string]bool{
	models.SourceCourse: true,
	models.SourceDaily:  true,
}

// GetProgression returns the user's XP, level, coins, and distance to the
// next level.
func GetProgression(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	db := database.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}

	nextLevelXP := services.XPForNextLevel(user.CurrentLevel)
	return c.JSON(fiber.Map{
		"success":           true,
		"total_xp":          user.TotalXP,
		"current_level":     user.CurrentLevel,
		"total_coins":       user.TotalCoins,
		"streak_days":       user.StreakDays,
		"xp_for_next_level": nextLevelXP,
		"xp_to_next_level":  nextLevelXP - user.TotalXP,
	})
}

// AwardXP grants XP from client-reported activity. Only low-stakes sources
// are accepted here; project and achievement XP flow through their own
// server-side paths.
func AwardXP(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req AwardXPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Reason == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Reason is required"})
	}
	if !awardableSources[req.Source] {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid XP source"})
	}
	if req.Amount <= 0 || req.Amount > 500 {
		return c.Status(400).JSON(fiber.Map{"error": "Amount must be between 1 and 500"})
	}

	result, err := progressionService.Award(userID, req.Amount, req.Reason, req.Source, models.XPMetadata{})
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "result": result})
}

// GetXPHistory returns the user's XP ledger, newest first.
func GetXPHistory(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	limit, offset := parsePagination(c, 25, 100)
	entries, total, err := progressionService.History(userID, limit, offset)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"history": entries,
		"total":   total,
	})
}

// GetAchievements returns the user's achievements, newest first.
func GetAchievements(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	achievements, err := progressionService.Achievements(userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"achievements": achievements,
		"count":        len(achievements),
	})
}

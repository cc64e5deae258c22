// handlers/leaderboard.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// GetLeaderboard returns a ranked page for the requested period and
// category. Defaults to the live all-time overall board.
func GetLeaderboard(c *fiber.Ctx) error {
	period := c.Query("period", "all_time")
	category := c.Query("category", "overall")
	limit, offset := parsePagination(c, 50, 100)

	rows, total, err := leaderboardService.Query(period, category, limit, offset)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"period":      period,
		"category":    category,
		"leaderboard": rows,
		"total":       total,
	})
}

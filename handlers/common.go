// handlers/common.go - handler wiring and shared helpers
package handlers

import (
	"errors"
	"skillquest/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var (
	notificationService *services.NotificationService
	leaderboardService  *services.LeaderboardService
	progressionService  *services.ProgressionService
	projectService      *services.ProjectService
	generationService   *services.GenerationService
	roadmapService      *services.RoadmapService
	resumeService       *services.ResumeService
	streakService       *services.StreakService
)

// InitHandlers wires every handler to its services. Call once at startup,
// after the database is up. The generator and extractor are injected so
// main decides the real implementations and tests can use fakes.
func InitHandlers(db *gorm.DB, generator services.Generator, extractor services.TextExtractor) {
	notificationService = services.NewNotificationService(db)
	leaderboardService = services.NewLeaderboardService(db)
	progressionService = services.NewProgressionService(db, notificationService, leaderboardService)
	projectService = services.NewProjectService(db, progressionService, notificationService)
	generationService = services.NewGenerationService(db)
	roadmapService = services.NewRoadmapService(db, generator, generationService, progressionService, notificationService)
	resumeService = services.NewResumeService(db, generator, generationService, extractor)
	streakService = services.NewStreakService(db, progressionService, notificationService)
}

// serviceError maps service sentinel errors onto HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrQuotaExceeded):
		status = fiber.StatusTooManyRequests
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func parsePagination(c *fiber.Ctx, defaultLimit, maxLimit int) (limit, offset int) {
	limit = c.QueryInt("limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

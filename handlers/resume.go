// handlers/resume.go
package handlers

import (
	"skillquest/middleware"

	"github.com/gofiber/fiber/v2"
)

type AnalyzeResumeRequest struct {
	FileURL       string `json:"file_url"`
	FileName      string `json:"file_name"`
	TargetRole    string `json:"target_role"`
	TargetCompany string `json:"target_company"`
}

// AnalyzeResume analyzes an uploaded resume. Identical content is served
// from cache without a second model call.
func AnalyzeResume(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req AnalyzeResumeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := resumeService.Analyze(c.UserContext(), userID, req.FileURL, req.FileName, req.TargetRole, req.TargetCompany)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"cached":   result.Cached,
		"analysis": result.Analysis,
	})
}

// GetResumeHistory returns the user's past analyses.
func GetResumeHistory(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	limit, _ := parsePagination(c, 10, 50)
	analyses, err := resumeService.History(userID, limit)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"analyses": analyses,
		"count":    len(analyses),
	})
}

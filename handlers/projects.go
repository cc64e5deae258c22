// handlers/projects.go
package handlers

import (
	"skillquest/middleware"
	"skillquest/models"
	"skillquest/services"

	"github.com/gofiber/fiber/v2"
)

type CreateProjectRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	Difficulty        string   `json:"difficulty"`
	XPReward          int      `json:"xp_reward"`
	CoinReward        int      `json:"coin_reward"`
	TimeEstimateHours int      `json:"time_estimate_hours"`
	RequiredSkills    []string `json:"required_skills"`
	Tasks             []string `json:"tasks"`
	PrerequisiteIDs   []uint   `json:"prerequisite_ids"`
}

// ListProjects returns all projects visible to the user with their status.
func ListProjects(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	projects, err := projectService.List(userID, c.Query("category"))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"projects": projects,
		"count":    len(projects),
	})
}

// GetProject returns one project with the user's progress.
func GetProject(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	projectID, err := c.ParamsInt("id")
	if err != nil || projectID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	project, err := projectService.Get(userID, uint(projectID))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "project": project})
}

// UnlockProject attempts the locked->unlocked transition.
func UnlockProject(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	projectID, err := c.ParamsInt("id")
	if err != nil || projectID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	result, err := projectService.Unlock(userID, uint(projectID))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"already_unlocked": result.AlreadyUnlocked,
		"status":           result.Status,
		"xp_awarded":       result.XPAwarded,
		"project":          result.Project,
	})
}

// CompleteProject submits proof of work and runs the completion pipeline.
func CompleteProject(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	projectID, err := c.ParamsInt("id")
	if err != nil || projectID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var req services.CompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := projectService.Complete(userID, uint(projectID), req)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"already_completed": result.AlreadyCompleted,
		"award":             result.Award,
		"newly_unlocked":    result.NewlyUnlocked,
		"total_completed":   result.TotalCompleted,
	})
}

type AddPrerequisiteRequest struct {
	PrerequisiteID uint `json:"prerequisite_id"`
}

// AddPrerequisite adds a dependency edge to an existing project. Admin only.
func AddPrerequisite(c *fiber.Ctx) error {
	projectID, err := c.ParamsInt("id")
	if err != nil || projectID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var req AddPrerequisiteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := projectService.AddPrerequisite(uint(projectID), req.PrerequisiteID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// CreateProject adds a catalog project with prerequisite edges. Admin only.
func CreateProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	project := models.Project{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Difficulty:        req.Difficulty,
		XPReward:          req.XPReward,
		CoinReward:        req.CoinReward,
		TimeEstimateHours: req.TimeEstimateHours,
		RequiredSkills:    models.MustJSON(req.RequiredSkills),
		Tasks:             models.MustJSON(req.Tasks),
	}

	if err := projectService.CreateProject(&project, req.PrerequisiteIDs); err != nil {
		return serviceError(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"success": true, "project": project})
}

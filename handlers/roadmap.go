// handlers/roadmap.go
package handlers

import (
	"skillquest/middleware"
	"skillquest/services"

	"github.com/gofiber/fiber/v2"
)

// GenerateRoadmap runs onboarding: generates the personalized roadmap
// from the submitted profile. If a roadmap already exists it is returned
// as-is without calling the model.
func GenerateRoadmap(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var profile services.RoadmapProfile
	if err := c.BodyParser(&profile); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := roadmapService.Generate(c.UserContext(), userID, profile)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"already_generated": result.AlreadyGenerated,
		"roadmap":           result,
	})
}

// GetRoadmap returns the user's roadmap nodes in order.
func GetRoadmap(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	nodes, err := roadmapService.Nodes(userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"nodes":   nodes,
		"count":   len(nodes),
	})
}

// CompleteRoadmapNode marks a node done and unlocks the next one.
func CompleteRoadmapNode(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	nodeID, err := c.ParamsInt("id")
	if err != nil || nodeID <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid node ID"})
	}

	award, err := roadmapService.CompleteNode(userID, uint(nodeID))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "award": award})
}

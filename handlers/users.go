// handlers/users.go
package handlers

import (
	"skillquest/database"
	"skillquest/middleware"
	"skillquest/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/clause"
)

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	College     string `json:"college"`
	Major       string `json:"major"`
	CareerGoal  string `json:"career_goal"`
}

type UpsertSkillRequest struct {
	SkillName        string `json:"skill_name"`
	Category         string `json:"category"`
	CurrentLevel     string `json:"current_level"`
	TargetLevel      string `json:"target_level"`
	ProficiencyScore int    `json:"proficiency_score"`
}

// GetMe returns the authenticated user's profile.
func GetMe(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	db := database.GetDB()
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(fiber.Map{"success": true, "user": userInfo(&user)})
}

// UpdateProfile updates the editable profile fields.
func UpdateProfile(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updates := map[string]interface{}{}
	if req.DisplayName != "" {
		updates["display_name"] = req.DisplayName
	}
	if req.PhotoURL != "" {
		updates["photo_url"] = req.PhotoURL
	}
	if req.College != "" {
		updates["college"] = req.College
	}
	if req.Major != "" {
		updates["major"] = req.Major
	}
	if req.CareerGoal != "" {
		updates["career_goal"] = req.CareerGoal
	}
	if len(updates) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Nothing to update"})
	}

	db := database.GetDB()
	if err := db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	var user models.User
	db.First(&user, userID)
	return c.JSON(fiber.Map{"success": true, "user": userInfo(&user)})
}

// GetSkills returns the user's skills with gaps first.
func GetSkills(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	db := database.GetDB()
	var skills []models.UserSkill
	if err := db.Where("user_id = ?", userID).
		Order("is_gap DESC, importance_score DESC, skill_name ASC").
		Find(&skills).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to load skills"})
	}

	return c.JSON(fiber.Map{"success": true, "skills": skills, "count": len(skills)})
}

// UpsertSkill creates or updates one of the user's skills.
func UpsertSkill(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req UpsertSkillRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.SkillName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Skill name is required"})
	}
	if req.ProficiencyScore < 0 || req.ProficiencyScore > 100 {
		return c.Status(400).JSON(fiber.Map{"error": "Proficiency must be between 0 and 100"})
	}

	skill := models.UserSkill{
		UserID:           userID,
		SkillName:        req.SkillName,
		Category:         req.Category,
		CurrentLevel:     req.CurrentLevel,
		TargetLevel:      req.TargetLevel,
		ProficiencyScore: req.ProficiencyScore,
	}

	db := database.GetDB()
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "skill_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "current_level", "target_level", "proficiency_score"}),
	}).Create(&skill).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to save skill"})
	}

	return c.JSON(fiber.Map{"success": true, "skill": skill})
}

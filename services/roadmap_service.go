// services/roadmap_service.go - AI career roadmap generation
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"skillquest/models"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const onboardingXPReward = 100

type RoadmapService struct {
	db            *gorm.DB
	generator     Generator
	cache         *GenerationService
	progression   *ProgressionService
	notifications *NotificationService
}

func NewRoadmapService(db *gorm.DB, generator Generator, cache *GenerationService, progression *ProgressionService, notifications *NotificationService) *RoadmapService {
	return &RoadmapService{db: db, generator: generator, cache: cache, progression: progression, notifications: notifications}
}

// RoadmapProfile is the onboarding questionnaire a roadmap is generated from.
type RoadmapProfile struct {
	Name           string       `json:"name"`
	College        string       `json:"college"`
	Major          string       `json:"major"`
	GraduationYear int          `json:"graduation_year"`
	CareerGoal     string       `json:"career_goal"`
	CurrentSkills  []SkillLevel `json:"current_skills"`
	TargetSkills   []SkillLevel `json:"target_skills"`
	Interests      []string     `json:"interests"`
	TimelineMonths int          `json:"timeline_months"`
	LearningStyle  string       `json:"learning_style"`
}

type SkillLevel struct {
	Skill string `json:"skill"`
	Level string `json:"level"` // Beginner, Intermediate, Advanced, Expert
}

// proficiencyForLevel maps a self-reported skill level onto the 0-100
// proficiency scale used by project skill gates.
func proficiencyForLevel(level string) int {
	switch level {
	case "Expert":
		return 100
	case "Advanced":
		return 75
	case "Intermediate":
		return 50
	default:
		return 25
	}
}

type roadmapArtifact struct {
	RoadmapTitle       string `json:"roadmap_title"`
	RoadmapDescription string `json:"roadmap_description"`
	Nodes              []struct {
		Title             string   `json:"title"`
		Description       string   `json:"description"`
		NodeType          string   `json:"node_type"`
		Difficulty        string   `json:"difficulty"`
		XPReward          int      `json:"xp_reward"`
		TimeEstimateHours int      `json:"time_estimate_hours"`
		RequiredSkills    []string `json:"required_skills"`
		ExternalURL       string   `json:"external_url"`
		BackgroundTheme   string   `json:"background_theme"`
	} `json:"nodes"`
	SkillGaps []struct {
		Skill      string `json:"skill"`
		Importance int    `json:"importance"`
	} `json:"skill_gaps"`
	RecommendedProjects []struct {
		Title          string   `json:"title"`
		Description    string   `json:"description"`
		Category       string   `json:"category"`
		Difficulty     string   `json:"difficulty"`
		XPReward       int      `json:"xp_reward"`
		RequiredSkills []string `json:"required_skills"`
	} `json:"recommended_projects"`
	RecommendedCourses []struct {
		Title         string   `json:"title"`
		Platform      string   `json:"platform"`
		URL           string   `json:"url"`
		DurationHours int      `json:"duration_hours"`
		Difficulty    string   `json:"difficulty"`
		IsFree        bool     `json:"is_free"`
		SkillsCovered []string `json:"skills_covered"`
	} `json:"recommended_courses"`
	EstimatedCompletionWeeks int `json:"estimated_completion_weeks"`
}

type RoadmapResult struct {
	AlreadyGenerated bool                 `json:"already_generated"`
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	Nodes            []models.RoadmapNode `json:"nodes"`
	SkillGapCount    int                  `json:"skill_gap_count"`
	EstimatedWeeks   int                  `json:"estimated_weeks"`
	XPAwarded        int                  `json:"xp_awarded"`
}

// Generate builds a personalized roadmap for the user. The first
// successful generation wins permanently: if the user already has roadmap
// nodes, those are returned untouched no matter how the profile changed.
// Regeneration requires explicit deletion, which is not offered here.
func (s *RoadmapService) Generate(ctx context.Context, userID uint, profile RoadmapProfile) (*RoadmapResult, error) {
	if len(strings.TrimSpace(profile.CareerGoal)) < 3 {
		return nil, fmt.Errorf("%w: career goal is required", ErrInvalidArgument)
	}
	if profile.TimelineMonths <= 0 {
		return nil, fmt.Errorf("%w: timeline must be a positive number of months", ErrInvalidArgument)
	}

	var existing []models.RoadmapNode
	if err := s.db.Where("user_id = ?", userID).Order("order_index ASC").Find(&existing).Error; err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &RoadmapResult{AlreadyGenerated: true, Nodes: existing}, nil
	}

	// The whole generation runs under a per-user cache key so concurrent
	// calls share one flight and never double-bill the model. The key is
	// deliberately constant: the first roadmap wins no matter how the
	// profile changes later.
	var built *RoadmapResult
	_, err := s.cache.GetOrGenerate(userID, models.ArtifactRoadmap, "onboarding", func() (json.RawMessage, error) {
		raw, err := s.generator.Generate(ctx, buildRoadmapPrompt(profile), roadmapSystemInstructions)
		if err != nil {
			return nil, err
		}

		var artifact roadmapArtifact
		if err := json.Unmarshal(raw, &artifact); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		if len(artifact.Nodes) == 0 {
			return nil, fmt.Errorf("%w: model returned an empty roadmap", ErrGenerationFailed)
		}

		result, err := s.materialize(userID, profile, &artifact)
		if err != nil {
			return nil, err
		}
		built = result
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	if built != nil {
		return built, nil
	}
	// Another call owns the roadmap: either it shared our flight or its
	// artifact was already cached.
	return &RoadmapResult{AlreadyGenerated: true, Nodes: existingNodes(s.db, userID)}, nil
}

// materialize persists the generated roadmap and runs the onboarding side
// effects. Runs at most once per user: the unique node index turns a
// racing insert from another process into the already-generated path.
func (s *RoadmapService) materialize(userID uint, profile RoadmapProfile, artifact *roadmapArtifact) (*RoadmapResult, error) {
	nodes := s.buildNodes(userID, artifact)
	if err := s.db.Create(&nodes).Error; err != nil {
		if len(existingNodes(s.db, userID)) > 0 {
			return &RoadmapResult{AlreadyGenerated: true, Nodes: existingNodes(s.db, userID)}, nil
		}
		return nil, err
	}

	s.saveSkills(userID, profile, artifact)
	s.saveRecommendations(userID, artifact)

	s.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"career_goal":         profile.CareerGoal,
		"college":             profile.College,
		"major":               profile.Major,
		"onboarding_complete": true,
	})

	award, err := s.progression.Award(userID, onboardingXPReward, "Completed onboarding and generated career roadmap",
		models.SourceOnboarding, models.XPMetadata{RoadmapNodes: len(nodes)})
	if err != nil {
		log.Printf("onboarding award failed for user %d: %v", userID, err)
	}

	s.notifications.Emit(userID, "🗺️ Your Roadmap Is Ready!",
		fmt.Sprintf("%d steps stand between you and %q. The first three are already unlocked.", len(nodes), profile.CareerGoal),
		"roadmap",
		models.NotificationPayload{RoadmapNodes: len(nodes), EstimatedWeeks: artifact.EstimatedCompletionWeeks})

	result := &RoadmapResult{
		Title:          artifact.RoadmapTitle,
		Description:    artifact.RoadmapDescription,
		Nodes:          nodes,
		SkillGapCount:  len(artifact.SkillGaps),
		EstimatedWeeks: artifact.EstimatedCompletionWeeks,
	}
	if award != nil {
		result.XPAwarded = award.XPAwarded
	}
	return result, nil
}

// Nodes returns the user's roadmap in order.
func (s *RoadmapService) Nodes(userID uint) ([]models.RoadmapNode, error) {
	var nodes []models.RoadmapNode
	err := s.db.Where("user_id = ?", userID).Order("order_index ASC").Find(&nodes).Error
	return nodes, err
}

// CompleteNode marks a roadmap node completed, awards its XP once, and
// unlocks the next locked node in order.
func (s *RoadmapService) CompleteNode(userID, nodeID uint) (*AwardResult, error) {
	var node models.RoadmapNode
	if err := s.db.Where("id = ? AND user_id = ?", nodeID, userID).First(&node).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: roadmap node %d", ErrNotFound, nodeID)
		}
		return nil, err
	}
	if node.Status == models.StatusLocked {
		return nil, fmt.Errorf("%w: node is locked. Complete earlier steps first", ErrForbidden)
	}

	update := s.db.Model(&models.RoadmapNode{}).
		Where("id = ? AND user_id = ? AND status = ?", nodeID, userID, models.StatusUnlocked).
		Updates(map[string]interface{}{
			"status":              models.StatusCompleted,
			"progress_percentage": 100,
			"completed_at":        gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if update.Error != nil {
		return nil, update.Error
	}
	if update.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: node already completed", ErrInvalidArgument)
	}

	s.db.Model(&models.RoadmapNode{}).
		Where("user_id = ? AND status = ? AND order_index > ?", userID, models.StatusLocked, node.OrderIndex).
		Order("order_index ASC").Limit(1).
		Update("status", models.StatusUnlocked)

	return s.progression.Award(userID, node.XPReward, "Completed roadmap step: "+node.Title,
		models.SourceCourse, models.XPMetadata{})
}

func existingNodes(db *gorm.DB, userID uint) []models.RoadmapNode {
	var nodes []models.RoadmapNode
	db.Where("user_id = ?", userID).Order("order_index ASC").Find(&nodes)
	return nodes
}

// buildNodes lays the generated steps out on a jittered grid and unlocks
// the first three so a new user always has something actionable.
func (s *RoadmapService) buildNodes(userID uint, artifact *roadmapArtifact) []models.RoadmapNode {
	count := len(artifact.Nodes)
	columns := int(math.Ceil(math.Sqrt(float64(count))))

	nodes := make([]models.RoadmapNode, 0, count)
	for i, n := range artifact.Nodes {
		row := i / columns
		col := i % columns

		status := models.StatusLocked
		if i < 3 {
			status = models.StatusUnlocked
		}
		xp := n.XPReward
		if xp <= 0 {
			xp = 100
		}

		nodes = append(nodes, models.RoadmapNode{
			UserID:            userID,
			NodeType:          n.NodeType,
			Title:             n.Title,
			Description:       n.Description,
			PositionX:         float64(col)*250 + rand.Float64()*50,
			PositionY:         float64(row)*200 + rand.Float64()*40,
			Status:            status,
			XPReward:          xp,
			TimeEstimateHours: n.TimeEstimateHours,
			RequiredSkills:    models.MustJSON(n.RequiredSkills),
			Difficulty:        n.Difficulty,
			BackgroundTheme:   n.BackgroundTheme,
			OrderIndex:        i,
			ExternalURL:       n.ExternalURL,
		})
	}
	return nodes
}

// saveSkills upserts the user's current skills with proficiency derived
// from self-reported levels, then flags the model's skill gaps.
func (s *RoadmapService) saveSkills(userID uint, profile RoadmapProfile, artifact *roadmapArtifact) {
	upsert := func(skill models.UserSkill) {
		err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "skill_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"current_level", "target_level", "proficiency_score", "importance_score", "is_gap"}),
		}).Create(&skill).Error
		if err != nil {
			log.Printf("Failed to save skill %q for user %d: %v", skill.SkillName, userID, err)
		}
	}

	for _, cs := range profile.CurrentSkills {
		upsert(models.UserSkill{
			UserID:           userID,
			SkillName:        cs.Skill,
			CurrentLevel:     cs.Level,
			ProficiencyScore: proficiencyForLevel(cs.Level),
			ImportanceScore:  3,
		})
	}
	for _, ts := range profile.TargetSkills {
		upsert(models.UserSkill{
			UserID:          userID,
			SkillName:       ts.Skill,
			TargetLevel:     ts.Level,
			ImportanceScore: 3,
			IsGap:           true,
		})
	}
	for _, gap := range artifact.SkillGaps {
		importance := gap.Importance
		if importance <= 0 {
			importance = 3
		}
		upsert(models.UserSkill{
			UserID:          userID,
			SkillName:       gap.Skill,
			ImportanceScore: importance,
			IsGap:           true,
		})
	}
}

// saveRecommendations persists up to five suggested projects (owned by
// the user) and five courses from the artifact.
func (s *RoadmapService) saveRecommendations(userID uint, artifact *roadmapArtifact) {
	projects := artifact.RecommendedProjects
	if len(projects) > 5 {
		projects = projects[:5]
	}
	for _, p := range projects {
		xp := p.XPReward
		if xp <= 0 {
			xp = 200
		}
		project := models.Project{
			UserID:         &userID,
			Title:          p.Title,
			Description:    p.Description,
			Category:       p.Category,
			Difficulty:     p.Difficulty,
			XPReward:       xp,
			CoinReward:     xp / 4,
			RequiredSkills: models.MustJSON(p.RequiredSkills),
		}
		if err := s.db.Create(&project).Error; err != nil {
			log.Printf("Failed to save recommended project for user %d: %v", userID, err)
		}
	}

	courses := artifact.RecommendedCourses
	if len(courses) > 5 {
		courses = courses[:5]
	}
	for _, c := range courses {
		course := models.Course{
			Title:         c.Title,
			Platform:      c.Platform,
			URL:           c.URL,
			DurationHours: c.DurationHours,
			Difficulty:    c.Difficulty,
			IsFree:        c.IsFree,
			SkillsCovered: models.MustJSON(c.SkillsCovered),
		}
		if err := s.db.Create(&course).Error; err != nil {
			log.Printf("Failed to save recommended course for user %d: %v", userID, err)
		}
	}
}

const roadmapSystemInstructions = `You are a career planning assistant for college students. Respond with a single JSON object only, no markdown, matching the schema in the prompt exactly.`

func buildRoadmapPrompt(profile RoadmapProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a personalized career roadmap for this student:\n\n")
	fmt.Fprintf(&b, "Name: %s\nCollege: %s\nMajor: %s\nGraduation year: %d\n", profile.Name, profile.College, profile.Major, profile.GraduationYear)
	fmt.Fprintf(&b, "Career goal: %s\nTimeline: %d months\nLearning style: %s\n", profile.CareerGoal, profile.TimelineMonths, profile.LearningStyle)

	if len(profile.CurrentSkills) > 0 {
		b.WriteString("Current skills:\n")
		for _, s := range profile.CurrentSkills {
			fmt.Fprintf(&b, "- %s (%s)\n", s.Skill, s.Level)
		}
	}
	if len(profile.TargetSkills) > 0 {
		b.WriteString("Target skills:\n")
		for _, s := range profile.TargetSkills {
			fmt.Fprintf(&b, "- %s (%s)\n", s.Skill, s.Level)
		}
	}
	if len(profile.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(profile.Interests, ", "))
	}

	b.WriteString(`
Requirements:
- 15 to 25 nodes ordered from fundamentals to the career goal
- node_type is one of: course, project, skill, challenge, milestone, checkpoint
- every node has title, description, difficulty (Beginner/Intermediate/Advanced), xp_reward (50-500), time_estimate_hours, required_skills
- include skill_gaps with importance 1-5, up to 5 recommended_projects, up to 5 recommended_courses with real platforms

Respond with JSON:
{
  "roadmap_title": "...",
  "roadmap_description": "...",
  "nodes": [{"title": "...", "description": "...", "node_type": "...", "difficulty": "...", "xp_reward": 100, "time_estimate_hours": 5, "required_skills": ["..."], "external_url": "", "background_theme": "..."}],
  "skill_gaps": [{"skill": "...", "importance": 4}],
  "recommended_projects": [{"title": "...", "description": "...", "category": "...", "difficulty": "...", "xp_reward": 200, "required_skills": ["..."]}],
  "recommended_courses": [{"title": "...", "platform": "...", "url": "...", "duration_hours": 10, "difficulty": "...", "is_free": true, "skills_covered": ["..."]}],
  "estimated_completion_weeks": 24
}`)
	return b.String()
}

// services/project_service.go - project dependency graph engine
package services

import (
	"errors"
	"fmt"
	"log"
	"skillquest/models"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Minimum proficiency score a required skill must reach before a project
// can be unlocked.
const MinSkillProficiency = 30

type ProjectService struct {
	db            *gorm.DB
	progression   *ProgressionService
	notifications *NotificationService
}

func NewProjectService(db *gorm.DB, progression *ProgressionService, notifications *NotificationService) *ProjectService {
	return &ProjectService{db: db, progression: progression, notifications: notifications}
}

// CreateProject inserts a project with its prerequisite edges, rejecting
// any edge that would close a cycle in the unlock graph. A cyclic graph
// would make every project on the cycle permanently locked.
func (s *ProjectService) CreateProject(project *models.Project, prerequisiteIDs []uint) error {
	if strings.TrimSpace(project.Title) == "" {
		return fmt.Errorf("%w: project title is required", ErrInvalidArgument)
	}

	for _, id := range prerequisiteIDs {
		var count int64
		if err := s.db.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: prerequisite project %d", ErrNotFound, id)
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		for _, id := range prerequisiteIDs {
			if id == project.ID {
				return fmt.Errorf("%w: a project cannot be its own prerequisite", ErrInvalidArgument)
			}
			cyclic, err := dependsOn(tx, id, project.ID)
			if err != nil {
				return err
			}
			if cyclic {
				return fmt.Errorf("%w: prerequisite %d would create a dependency cycle", ErrInvalidArgument, id)
			}
			edge := models.ProjectPrerequisite{ProjectID: project.ID, PrerequisiteID: id}
			if err := tx.Create(&edge).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AddPrerequisite adds a dependency edge to an existing project. The edge
// is rejected if the prerequisite already depends on the project, which
// would close a cycle and make both permanently locked.
func (s *ProjectService) AddPrerequisite(projectID, prerequisiteID uint) error {
	if projectID == prerequisiteID {
		return fmt.Errorf("%w: a project cannot be its own prerequisite", ErrInvalidArgument)
	}

	for _, id := range []uint{projectID, prerequisiteID} {
		var count int64
		if err := s.db.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: project %d", ErrNotFound, id)
		}
	}

	cyclic, err := dependsOn(s.db, prerequisiteID, projectID)
	if err != nil {
		return err
	}
	if cyclic {
		return fmt.Errorf("%w: prerequisite %d would create a dependency cycle", ErrInvalidArgument, prerequisiteID)
	}

	edge := models.ProjectPrerequisite{ProjectID: projectID, PrerequisiteID: prerequisiteID}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "prerequisite_id"}},
		DoNothing: true,
	}).Create(&edge).Error
}

// dependsOn reports whether target is reachable from from by walking
// prerequisite edges.
func dependsOn(tx *gorm.DB, from, target uint) (bool, error) {
	visited := map[uint]bool{}
	stack := []uint{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == target {
			return true, nil
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		var edges []models.ProjectPrerequisite
		if err := tx.Where("project_id = ?", current).Find(&edges).Error; err != nil {
			return false, err
		}
		for _, edge := range edges {
			stack = append(stack, edge.PrerequisiteID)
		}
	}
	return false, nil
}

// ProjectView is a catalog project annotated with the viewing user's state.
type ProjectView struct {
	models.Project
	Status             string `json:"status"`
	ProgressPercentage int    `json:"progress_percentage"`
	PrerequisiteIDs    []uint `json:"prerequisite_ids"`
}

// List returns catalog projects plus the user's personal projects, each
// annotated with the user's progress state. Projects without a progress
// row read as locked.
func (s *ProjectService) List(userID uint, category string) ([]ProjectView, error) {
	query := s.db.Preload("Prerequisites").
		Where("user_id IS NULL OR user_id = ?", userID)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var projects []models.Project
	if err := query.Order("trending_score DESC, id ASC").Find(&projects).Error; err != nil {
		return nil, err
	}

	var progress []models.UserProjectProgress
	if err := s.db.Where("user_id = ?", userID).Find(&progress).Error; err != nil {
		return nil, err
	}
	byProject := make(map[uint]models.UserProjectProgress, len(progress))
	for _, p := range progress {
		byProject[p.ProjectID] = p
	}

	views := make([]ProjectView, 0, len(projects))
	for _, project := range projects {
		view := ProjectView{Project: project, Status: models.StatusLocked}
		for _, edge := range project.Prerequisites {
			view.PrerequisiteIDs = append(view.PrerequisiteIDs, edge.PrerequisiteID)
		}
		if p, ok := byProject[project.ID]; ok {
			view.Status = p.Status
			view.ProgressPercentage = p.ProgressPercentage
		}
		views = append(views, view)
	}
	return views, nil
}

// Get returns one project annotated with the user's progress.
func (s *ProjectService) Get(userID, projectID uint) (*ProjectView, error) {
	var project models.Project
	if err := s.db.Preload("Prerequisites").First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %d", ErrNotFound, projectID)
		}
		return nil, err
	}

	view := ProjectView{Project: project, Status: models.StatusLocked}
	for _, edge := range project.Prerequisites {
		view.PrerequisiteIDs = append(view.PrerequisiteIDs, edge.PrerequisiteID)
	}

	var progress models.UserProjectProgress
	err := s.db.Where("user_id = ? AND project_id = ?", userID, projectID).First(&progress).Error
	if err == nil {
		view.Status = progress.Status
		view.ProgressPercentage = progress.ProgressPercentage
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &view, nil
}

type UnlockResult struct {
	AlreadyUnlocked bool            `json:"already_unlocked"`
	Status          string          `json:"status"`
	Project         *models.Project `json:"project"`
	XPAwarded       int             `json:"xp_awarded"`
}

// Unlock transitions a project from locked to unlocked for the user,
// enforcing the skill gate and the prerequisite gate, and awards the
// unlock bonus exactly once.
func (s *ProjectService) Unlock(userID, projectID uint) (*UnlockResult, error) {
	var project models.Project
	if err := s.db.Preload("Prerequisites").First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %d", ErrNotFound, projectID)
		}
		return nil, err
	}

	var existing models.UserProjectProgress
	err := s.db.Where("user_id = ? AND project_id = ?", userID, projectID).First(&existing).Error
	if err == nil && existing.Status != models.StatusLocked {
		return &UnlockResult{AlreadyUnlocked: true, Status: existing.Status, Project: &project}, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.checkSkillGate(userID, &project); err != nil {
		return nil, err
	}
	if err := s.checkPrerequisites(userID, &project); err != nil {
		return nil, err
	}

	won, err := s.markUnlocked(userID, projectID)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent unlock beat us; it owns the bonus.
		s.db.Where("user_id = ? AND project_id = ?", userID, projectID).First(&existing)
		return &UnlockResult{AlreadyUnlocked: true, Status: existing.Status, Project: &project}, nil
	}

	if _, err := s.progression.Award(userID, UnlockXPReward, "Unlocked project: "+project.Title,
		models.SourceProject, models.XPMetadata{ProjectID: &project.ID, ProjectTitle: project.Title}); err != nil {
		log.Printf("unlock bonus award failed for user %d: %v", userID, err)
	}

	s.notifications.Emit(userID, "🔓 New Project Unlocked!",
		fmt.Sprintf("%q is now available. Start building to earn %d XP!", project.Title, project.XPReward),
		"unlock",
		models.NotificationPayload{ProjectID: &project.ID, ProjectTitle: project.Title, XPReward: project.XPReward})

	return &UnlockResult{Status: models.StatusUnlocked, Project: &project, XPAwarded: UnlockXPReward}, nil
}

// checkSkillGate verifies every required skill exists with proficiency at
// or above the minimum. Missing skills and insufficient skills get
// distinct messages so clients can point users at the right fix.
func (s *ProjectService) checkSkillGate(userID uint, project *models.Project) error {
	required := models.StringList(project.RequiredSkills)
	if len(required) == 0 {
		return nil
	}

	var skills []models.UserSkill
	if err := s.db.Where("user_id = ? AND skill_name IN ?", userID, required).Find(&skills).Error; err != nil {
		return err
	}
	scores := make(map[string]int, len(skills))
	for _, skill := range skills {
		scores[skill.SkillName] = skill.ProficiencyScore
	}

	var missing, weak []string
	for _, name := range required {
		score, ok := scores[name]
		if !ok {
			missing = append(missing, name)
		} else if score < MinSkillProficiency {
			weak = append(weak, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required skills: %s", ErrForbidden, strings.Join(missing, ", "))
	}
	if len(weak) > 0 {
		return fmt.Errorf("%w: insufficient proficiency in: %s. Complete more courses first", ErrForbidden, strings.Join(weak, ", "))
	}
	return nil
}

func (s *ProjectService) checkPrerequisites(userID uint, project *models.Project) error {
	if len(project.Prerequisites) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(project.Prerequisites))
	for _, edge := range project.Prerequisites {
		ids = append(ids, edge.PrerequisiteID)
	}

	var completed int64
	err := s.db.Model(&models.UserProjectProgress{}).
		Where("user_id = ? AND project_id IN ? AND status = ?", userID, ids, models.StatusCompleted).
		Count(&completed).Error
	if err != nil {
		return err
	}
	if int(completed) != len(ids) {
		return fmt.Errorf("%w: complete the prerequisite projects first", ErrForbidden)
	}
	return nil
}

// markUnlocked performs the locked->unlocked transition and reports
// whether this call won it. The unique (user, project) index plus the
// status-guarded update make the transition at-most-once under races.
func (s *ProjectService) markUnlocked(userID, projectID uint) (bool, error) {
	progress := models.UserProjectProgress{
		UserID:    userID,
		ProjectID: projectID,
		Status:    models.StatusUnlocked,
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "project_id"}},
		DoNothing: true,
	}).Create(&progress)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	update := s.db.Model(&models.UserProjectProgress{}).
		Where("user_id = ? AND project_id = ? AND status = ?", userID, projectID, models.StatusLocked).
		Update("status", models.StatusUnlocked)
	if update.Error != nil {
		return false, update.Error
	}
	return update.RowsAffected > 0, nil
}

type CompleteRequest struct {
	GithubURL       string   `json:"github_url"`
	DemoURL         string   `json:"demo_url"`
	SubmissionNotes string   `json:"submission_notes"`
	CompletedTasks  []string `json:"completed_tasks"`
}

type CompleteResult struct {
	AlreadyCompleted bool            `json:"already_completed"`
	Project          *models.Project `json:"project"`
	Award            *AwardResult    `json:"award,omitempty"`
	NewlyUnlocked    []string        `json:"newly_unlocked"`
	TotalCompleted   int             `json:"total_completed"`
}

// Complete marks an unlocked project as completed and runs the side
// effects in order: XP award, completion counters, milestone check,
// cascade unlocks, roadmap sync, notification. The status transition is
// the commit point; everything after it is recovered by not re-running
// (the guard clause reports already_completed on a repeat call).
func (s *ProjectService) Complete(userID, projectID uint, req CompleteRequest) (*CompleteResult, error) {
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %d", ErrNotFound, projectID)
		}
		return nil, err
	}

	var progress models.UserProjectProgress
	err := s.db.Where("user_id = ? AND project_id = ?", userID, projectID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: project is locked. Unlock it first", ErrForbidden)
	}
	if err != nil {
		return nil, err
	}
	if progress.Status == models.StatusLocked {
		return nil, fmt.Errorf("%w: project is locked. Unlock it first", ErrForbidden)
	}
	if progress.Status == models.StatusCompleted {
		return &CompleteResult{AlreadyCompleted: true, Project: &project}, nil
	}

	if req.GithubURL == "" && req.DemoURL == "" {
		return nil, fmt.Errorf("%w: provide a GitHub URL or a demo URL as proof of work", ErrInvalidArgument)
	}

	now := time.Now()
	submission := models.MustJSON(models.SubmissionData{
		Notes:          req.SubmissionNotes,
		CompletedTasks: req.CompletedTasks,
		SubmittedAt:    now,
	})
	update := s.db.Model(&models.UserProjectProgress{}).
		Where("user_id = ? AND project_id = ? AND status = ?", userID, projectID, models.StatusUnlocked).
		Updates(map[string]interface{}{
			"status":              models.StatusCompleted,
			"progress_percentage": 100,
			"github_url":          req.GithubURL,
			"demo_url":            req.DemoURL,
			"submission_data":     submission,
			"completed_at":        now,
		})
	if update.Error != nil {
		return nil, update.Error
	}
	if update.RowsAffected == 0 {
		// Lost the race against a concurrent completion.
		return &CompleteResult{AlreadyCompleted: true, Project: &project}, nil
	}

	award, err := s.progression.Award(userID, project.XPReward, "Completed project: "+project.Title,
		models.SourceProject, models.XPMetadata{
			ProjectID:    &project.ID,
			ProjectTitle: project.Title,
			GithubURL:    req.GithubURL,
			DemoURL:      req.DemoURL,
		})
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Project{}).Where("id = ?", projectID).
		Updates(map[string]interface{}{
			"completion_count": gorm.Expr("completion_count + 1"),
			"trending_score":   gorm.Expr("trending_score + 1"),
		}).Error; err != nil {
		log.Printf("Failed to bump completion count for project %d: %v", projectID, err)
	}

	var totalCompleted int64
	s.db.Model(&models.UserProjectProgress{}).
		Where("user_id = ? AND status = ?", userID, models.StatusCompleted).
		Count(&totalCompleted)

	if _, err := s.progression.CheckProjectMilestone(userID, int(totalCompleted)); err != nil {
		log.Printf("project milestone check failed for user %d: %v", userID, err)
	}

	newlyUnlocked, err := s.cascadeUnlocks(userID, projectID)
	if err != nil {
		log.Printf("cascade after project %d failed for user %d: %v", projectID, userID, err)
	}

	// Keep any matching roadmap node in step with the project state.
	s.db.Model(&models.RoadmapNode{}).
		Where("user_id = ? AND node_type = ? AND title = ?", userID, "project", project.Title).
		Updates(map[string]interface{}{"status": models.StatusCompleted, "completed_at": now})

	s.notifications.Emit(userID, "🎊 Project Completed!",
		fmt.Sprintf("Congratulations! You earned %d XP and %d coins for %q.", project.XPReward, award.CoinsAwarded, project.Title),
		"achievement",
		models.NotificationPayload{
			ProjectID:     &project.ID,
			ProjectTitle:  project.Title,
			XPAwarded:     project.XPReward,
			CoinsAwarded:  award.CoinsAwarded,
			NewlyUnlocked: newlyUnlocked,
		})

	return &CompleteResult{
		Project:        &project,
		Award:          award,
		NewlyUnlocked:  newlyUnlocked,
		TotalCompleted: int(totalCompleted),
	}, nil
}

// cascadeUnlocks re-evaluates every project that lists the just-completed
// one as a prerequisite and silently unlocks those whose full prerequisite
// set is now satisfied. Cascaded unlocks are state transitions, not
// rewards: no XP, no notification. The skill gate still applies only to
// manual unlocks.
func (s *ProjectService) cascadeUnlocks(userID, completedID uint) ([]string, error) {
	var dependents []models.ProjectPrerequisite
	if err := s.db.Where("prerequisite_id = ?", completedID).Find(&dependents).Error; err != nil {
		return nil, err
	}

	var newlyUnlocked []string
	for _, dependent := range dependents {
		var edges []models.ProjectPrerequisite
		if err := s.db.Where("project_id = ?", dependent.ProjectID).Find(&edges).Error; err != nil {
			return newlyUnlocked, err
		}
		ids := make([]uint, 0, len(edges))
		for _, edge := range edges {
			ids = append(ids, edge.PrerequisiteID)
		}

		var completed int64
		if err := s.db.Model(&models.UserProjectProgress{}).
			Where("user_id = ? AND project_id IN ? AND status = ?", userID, ids, models.StatusCompleted).
			Count(&completed).Error; err != nil {
			return newlyUnlocked, err
		}
		if int(completed) != len(ids) {
			continue
		}

		won, err := s.markUnlocked(userID, dependent.ProjectID)
		if err != nil {
			return newlyUnlocked, err
		}
		if !won {
			continue
		}

		var unlocked models.Project
		if err := s.db.Select("id, title").First(&unlocked, dependent.ProjectID).Error; err == nil {
			newlyUnlocked = append(newlyUnlocked, unlocked.Title)
		}
	}
	return newlyUnlocked, nil
}

// models/project.go - Projects, the unlock graph, and skill gates
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Project progress states. A missing progress row reads as locked.
const (
	StatusLocked    = "locked"
	StatusUnlocked  = "unlocked"
	StatusCompleted = "completed"
)

type Project struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            *uint          `gorm:"index" json:"user_id,omitempty"` // nil for catalog projects
	Title             string         `gorm:"not null" json:"title"`
	Description       string         `gorm:"type:text" json:"description"`
	Category          string         `gorm:"size:50" json:"category"`
	Difficulty        string         `gorm:"size:20;default:'Intermediate'" json:"difficulty"`
	XPReward          int            `gorm:"default:200" json:"xp_reward"`
	CoinReward        int            `gorm:"default:50" json:"coin_reward"`
	TimeEstimateHours int            `gorm:"default:10" json:"time_estimate_hours"`
	RequiredSkills    datatypes.JSON `json:"required_skills,omitempty"` // []string
	Tasks             datatypes.JSON `json:"tasks,omitempty"`
	CompletionCount   int            `gorm:"default:0" json:"completion_count"`
	TrendingScore     int            `gorm:"default:0" json:"trending_score"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	Prerequisites []ProjectPrerequisite `gorm:"foreignKey:ProjectID" json:"prerequisites,omitempty"`
}

// ProjectPrerequisite is one edge of the unlock dependency graph:
// ProjectID cannot be unlocked until PrerequisiteID is completed.
type ProjectPrerequisite struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	ProjectID      uint `gorm:"not null;uniqueIndex:ux_project_prereq,priority:1" json:"project_id"`
	PrerequisiteID uint `gorm:"not null;uniqueIndex:ux_project_prereq,priority:2;index" json:"prerequisite_id"`
}

type UserProjectProgress struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"not null;uniqueIndex:ux_user_project,priority:1" json:"user_id"`
	ProjectID          uint           `gorm:"not null;uniqueIndex:ux_user_project,priority:2" json:"project_id"`
	Status             string         `gorm:"not null;size:20;default:'locked';index" json:"status"`
	ProgressPercentage int            `gorm:"default:0" json:"progress_percentage"`
	GithubURL          string         `json:"github_url,omitempty"`
	DemoURL            string         `json:"demo_url,omitempty"`
	SubmissionData     datatypes.JSON `json:"submission_data,omitempty"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// SubmissionData is the closed schema stored on a completed progress row.
type SubmissionData struct {
	Notes          string    `json:"notes,omitempty"`
	CompletedTasks []string  `json:"completed_tasks,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type UserSkill struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex:ux_user_skill,priority:1" json:"user_id"`
	SkillName        string    `gorm:"not null;uniqueIndex:ux_user_skill,priority:2" json:"skill_name"`
	Category         string    `gorm:"size:50;default:'General'" json:"category"`
	CurrentLevel     string    `gorm:"size:20" json:"current_level"`
	TargetLevel      string    `gorm:"size:20" json:"target_level"`
	ProficiencyScore int       `gorm:"default:0" json:"proficiency_score"` // 0-100
	ImportanceScore  int       `gorm:"default:3" json:"importance_score"`
	IsGap            bool      `gorm:"default:false" json:"is_gap"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

func (ProjectPrerequisite) TableName() string {
	return "project_prerequisites"
}

func (UserProjectProgress) TableName() string {
	return "user_project_progress"
}

func (UserSkill) TableName() string {
	return "user_skills"
}

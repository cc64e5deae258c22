// models/user.go
package models

import (
	"time"
)

type User struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Username    string  `gorm:"uniqueIndex;not null" json:"username"`
	Email       *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Password    string  `gorm:"not null" json:"-"`
	DisplayName string  `json:"display_name"`
	PhotoURL    string  `json:"photo_url"`
	College     string  `json:"college"`
	Major       string  `json:"major"`
	CareerGoal  string  `json:"career_goal"`
	IsGuest     bool    `gorm:"default:false" json:"is_guest"`
	IsAdmin     bool    `gorm:"default:false" json:"is_admin"`

	// Progression. TotalXP and TotalCoins only ever grow; CurrentLevel is
	// derived from TotalXP and kept in lockstep by the award pipeline.
	TotalXP      int `gorm:"default:0" json:"total_xp"`
	CurrentLevel int `gorm:"default:1" json:"current_level"`
	TotalCoins   int `gorm:"default:0" json:"total_coins"`

	// Daily login streak
	StreakDays    int     `gorm:"default:0" json:"streak_days"`
	LastLoginDate *string `gorm:"size:10" json:"last_login_date,omitempty"` // YYYY-MM-DD

	OnboardingComplete bool `gorm:"default:false" json:"onboarding_complete"`

	// Timestamps
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastActivity time.Time `json:"last_activity"`

	// Relationships
	Achievements []Achievement `gorm:"foreignKey:UserID" json:"achievements,omitempty"`
	XPHistory    []XPHistory   `gorm:"foreignKey:UserID" json:"xp_history,omitempty"`
	Skills       []UserSkill   `gorm:"foreignKey:UserID" json:"skills,omitempty"`
}

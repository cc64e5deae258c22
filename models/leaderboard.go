// models/leaderboard.go
package models

import "time"

// Leaderboard periods and categories.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodAllTime = "all_time"

	CategoryOverall  = "overall"
	CategoryStreak   = "streak"
	CategoryCoins    = "coins"
	CategoryProjects = "projects"
)

// LeaderboardEntry is a denormalized cache row, one per
// (user, period, category). The users table stays authoritative; this
// cache is refreshed after every XP award. Rank is populated by an
// external batch job, not by the core.
type LeaderboardEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_leaderboard_key,priority:1" json:"user_id"`
	Period    string    `gorm:"not null;size:20;uniqueIndex:ux_leaderboard_key,priority:2" json:"period"`
	Category  string    `gorm:"not null;size:20;uniqueIndex:ux_leaderboard_key,priority:3" json:"category"`
	Score     int       `gorm:"default:0" json:"score"`
	Rank      *int      `json:"rank,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (LeaderboardEntry) TableName() string {
	return "leaderboard_cache"
}

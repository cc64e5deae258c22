// models/progression.go - XP ledger, achievements, notifications
package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// XP sources accepted by the award pipeline.
const (
	SourceProject     = "project"
	SourceCourse      = "course"
	SourceDaily       = "daily"
	SourceAchievement = "achievement"
	SourceMilestone   = "milestone"
	SourceOnboarding  = "onboarding"
)

// Achievement rarities, ordered Common < Rare < Epic < Legendary.
const (
	RarityCommon    = "Common"
	RarityRare      = "Rare"
	RarityEpic      = "Epic"
	RarityLegendary = "Legendary"
)

// Achievement types.
const (
	AchievementMilestone = "milestone"
	AchievementProject   = "project"
	AchievementStreak    = "streak"
)

// XPHistory is an append-only audit record. The running sum of Amount per
// user must always equal users.total_xp.
type XPHistory struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Amount    int            `gorm:"not null" json:"amount"`
	Reason    string         `gorm:"not null" json:"reason"`
	Source    string         `gorm:"not null;size:20;index" json:"source"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// XPMetadata is the closed schema stored in XPHistory.Metadata. Only the
// fields relevant to the event's source are set.
type XPMetadata struct {
	ProjectID     *uint  `json:"project_id,omitempty"`
	ProjectTitle  string `json:"project_title,omitempty"`
	GithubURL     string `json:"github_url,omitempty"`
	DemoURL       string `json:"demo_url,omitempty"`
	AchievementID *uint  `json:"achievement_id,omitempty"`
	Streak        int    `json:"streak,omitempty"`
	StreakBonus   int    `json:"streak_bonus,omitempty"`
	RoadmapNodes  int    `json:"roadmap_nodes_created,omitempty"`
}

type Achievement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Type        string    `gorm:"not null;size:20;index" json:"type"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	Rarity      string    `gorm:"not null;size:20" json:"rarity"`
	XPBonus     int       `gorm:"default:0" json:"xp_bonus"`
	CoinBonus   int       `gorm:"default:0" json:"coin_bonus"`
	CreatedAt   time.Time `json:"created_at"`
}

type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Title     string         `gorm:"not null" json:"title"`
	Message   string         `gorm:"not null" json:"message"`
	Type      string         `gorm:"not null;size:20" json:"type"`
	Data      datatypes.JSON `json:"data,omitempty"`
	IsRead    bool           `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

// NotificationPayload is the closed schema stored in Notification.Data.
type NotificationPayload struct {
	OldLevel       int      `json:"old_level,omitempty"`
	NewLevel       int      `json:"new_level,omitempty"`
	CoinsAwarded   int      `json:"coins_awarded,omitempty"`
	AchievementID  *uint    `json:"achievement_id,omitempty"`
	Rarity         string   `json:"rarity,omitempty"`
	ProjectID      *uint    `json:"project_id,omitempty"`
	ProjectTitle   string   `json:"project_title,omitempty"`
	XPReward       int      `json:"xp_reward,omitempty"`
	XPAwarded      int      `json:"xp_awarded,omitempty"`
	NewlyUnlocked  []string `json:"newly_unlocked,omitempty"`
	Streak         int      `json:"streak,omitempty"`
	RoadmapNodes   int      `json:"roadmap_nodes_count,omitempty"`
	EstimatedWeeks int      `json:"estimated_weeks,omitempty"`
}

// MustJSON marshals a typed payload into a datatypes.JSON column value.
// Payload structs contain only marshalable fields, so errors cannot occur.
func MustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(b)
}

// StringList decodes a JSON column holding a string array. Malformed or
// empty columns decode to nil.
func StringList(j datatypes.JSON) []string {
	if len(j) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(j, &out); err != nil {
		return nil
	}
	return out
}

func (XPHistory) TableName() string {
	return "xp_history"
}

func (Achievement) TableName() string {
	return "achievements"
}

func (Notification) TableName() string {
	return "notifications"
}

// models/roadmap.go - AI-generated career roadmap
package models

import (
	"time"

	"gorm.io/datatypes"
)

type RoadmapNode struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UserID             uint           `gorm:"not null;uniqueIndex:ux_roadmap_node,priority:1" json:"user_id"`
	NodeType           string         `gorm:"not null;size:20" json:"node_type"` // course, project, skill, challenge, milestone, checkpoint
	Title              string         `gorm:"not null" json:"title"`
	Description        string         `gorm:"type:text" json:"description"`
	PositionX          float64        `json:"position_x"`
	PositionY          float64        `json:"position_y"`
	Status             string         `gorm:"not null;size:20;default:'locked'" json:"status"`
	ProgressPercentage int            `gorm:"default:0" json:"progress_percentage"`
	XPReward           int            `gorm:"default:100" json:"xp_reward"`
	CoinReward         int            `gorm:"default:10" json:"coin_reward"`
	TimeEstimateHours  int            `gorm:"default:5" json:"time_estimate_hours"`
	RequiredSkills     datatypes.JSON `json:"required_skills,omitempty"`
	Difficulty         string         `gorm:"size:20;default:'Intermediate'" json:"difficulty"`
	BackgroundTheme    string         `gorm:"size:20" json:"background_theme"`
	OrderIndex         int            `gorm:"uniqueIndex:ux_roadmap_node,priority:2" json:"order_index"`
	ExternalURL        string         `json:"external_url,omitempty"`
	ResourceLinks      datatypes.JSON `json:"resource_links,omitempty"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type Course struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"not null" json:"title"`
	Platform      string         `gorm:"size:50;default:'Online'" json:"platform"`
	URL           string         `json:"url"`
	DurationHours int            `gorm:"default:10" json:"duration_hours"`
	Difficulty    string         `gorm:"size:20;default:'Beginner'" json:"difficulty"`
	IsFree        bool           `gorm:"default:true" json:"is_free"`
	SkillsCovered datatypes.JSON `json:"skills_covered,omitempty"`
	Rating        float64        `gorm:"default:4.5" json:"rating"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (RoadmapNode) TableName() string {
	return "roadmap_nodes"
}

func (Course) TableName() string {
	return "courses"
}

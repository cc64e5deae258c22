// models/generation.go - Content-addressed cache for generated artifacts
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Artifact types stored in the generation cache.
const (
	ArtifactResumeAnalysis = "resume_analysis"
	ArtifactRoadmap        = "roadmap"
)

// GenerationCacheEntry memoizes one externally-generated artifact per
// (user, artifact type, content hash). The unique index is what makes
// concurrent identical requests collapse to a single generator call.
type GenerationCacheEntry struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;uniqueIndex:ux_generation_key,priority:1" json:"user_id"`
	ArtifactType string         `gorm:"not null;size:30;uniqueIndex:ux_generation_key,priority:2" json:"artifact_type"`
	ContentHash  string         `gorm:"not null;size:64;uniqueIndex:ux_generation_key,priority:3" json:"content_hash"`
	Artifact     datatypes.JSON `gorm:"not null" json:"artifact"`
	CreatedAt    time.Time      `json:"created_at"`
}

type ResumeAnalysis struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `gorm:"not null;index" json:"user_id"`
	FileURL          string         `json:"file_url"`
	FileName         string         `json:"file_name"`
	FileHash         string         `gorm:"size:64;index" json:"file_hash"`
	OverallScore     int            `json:"overall_score"`
	ATSCompatibility int            `json:"ats_compatibility"`
	ExtractedText    string         `gorm:"type:text" json:"-"`
	AnalysisResult   datatypes.JSON `json:"analysis_result"`
	Improvements     datatypes.JSON `json:"improvements,omitempty"`
	KeywordGaps      datatypes.JSON `json:"keyword_gaps,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (GenerationCacheEntry) TableName() string {
	return "generation_cache"
}

func (ResumeAnalysis) TableName() string {
	return "resume_analyses"
}

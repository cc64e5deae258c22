// services/resume_service.go - AI resume analysis
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"skillquest/models"
	"skillquest/utils"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// A resume must yield at least this much text to be analyzable; anything
// shorter is a scan or an empty upload.
const MinResumeTextLength = 100

// TextExtractor turns an uploaded file into plain text. PDF and DOCX
// parsing lives behind this boundary, outside the core.
type TextExtractor interface {
	Extract(ctx context.Context, fileURL string) (string, error)
}

type ResumeService struct {
	db        *gorm.DB
	generator Generator
	cache     *GenerationService
	extractor TextExtractor
}

func NewResumeService(db *gorm.DB, generator Generator, cache *GenerationService, extractor TextExtractor) *ResumeService {
	return &ResumeService{db: db, generator: generator, cache: cache, extractor: extractor}
}

type ResumeAnalysisResult struct {
	Analysis   json.RawMessage `json:"analysis"`
	Cached     bool            `json:"cached"`
	AnalysisID uint            `json:"analysis_id,omitempty"`
}

// resumeArtifact holds the score fields lifted off the raw analysis for
// the persisted record; the rest of the artifact is stored verbatim.
type resumeArtifact struct {
	OverallScore     int             `json:"overall_score"`
	ATSCompatibility int             `json:"ats_compatibility"`
	Improvements     json.RawMessage `json:"improvements"`
	KeywordGaps      json.RawMessage `json:"keyword_gaps"`
}

// Analyze extracts the resume text and returns an analysis, generating one
// only if this user has not had identical content analyzed before. The
// cache key is the normalized text, so re-uploading the same file (or the
// same content under a new name) never burns a second model call.
func (s *ResumeService) Analyze(ctx context.Context, userID uint, fileURL, fileName, targetRole, targetCompany string) (*ResumeAnalysisResult, error) {
	if strings.TrimSpace(fileURL) == "" {
		return nil, fmt.Errorf("%w: file URL is required", ErrInvalidArgument)
	}

	text, err := s.extractor.Extract(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	normalized := utils.NormalizeText(text)
	if len(normalized) < MinResumeTextLength {
		return nil, fmt.Errorf("%w: could not extract enough text from the resume. Upload a text-based file, not a scan", ErrInvalidArgument)
	}

	result, err := s.cache.GetOrGenerate(userID, models.ArtifactResumeAnalysis, normalized, func() (json.RawMessage, error) {
		return s.generator.Generate(ctx, buildResumePrompt(text, targetRole, targetCompany), resumeSystemInstructions)
	})
	if err != nil {
		return nil, err
	}

	out := &ResumeAnalysisResult{Analysis: result.Artifact, Cached: result.Cached}
	if !result.Cached {
		out.AnalysisID = s.record(userID, fileURL, fileName, text, result)
	}
	return out, nil
}

// record persists the full analysis row for history views. Best effort:
// the artifact is already cached and returned either way.
func (s *ResumeService) record(userID uint, fileURL, fileName, text string, result *GenerationResult) uint {
	var scores resumeArtifact
	if err := json.Unmarshal(result.Artifact, &scores); err != nil {
		log.Printf("resume artifact for user %d missing score fields: %v", userID, err)
	}

	analysis := models.ResumeAnalysis{
		UserID:           userID,
		FileURL:          fileURL,
		FileName:         fileName,
		FileHash:         result.Hash,
		OverallScore:     scores.OverallScore,
		ATSCompatibility: scores.ATSCompatibility,
		ExtractedText:    text,
		AnalysisResult:   datatypes.JSON(result.Artifact),
		Improvements:     datatypes.JSON(scores.Improvements),
		KeywordGaps:      datatypes.JSON(scores.KeywordGaps),
	}
	if err := s.db.Create(&analysis).Error; err != nil {
		log.Printf("Failed to save resume analysis for user %d: %v", userID, err)
		return 0
	}
	return analysis.ID
}

// History returns the user's past analyses, newest first, without the
// extracted text.
func (s *ResumeService) History(userID uint, limit int) ([]models.ResumeAnalysis, error) {
	var analyses []models.ResumeAnalysis
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).
		Find(&analyses).Error
	return analyses, err
}

const resumeSystemInstructions = `You are an expert resume reviewer and ATS specialist. Respond with a single JSON object only, no markdown.`

func buildResumePrompt(text, targetRole, targetCompany string) string {
	var b strings.Builder
	b.WriteString("Analyze this resume and give specific, actionable feedback.\n\n")
	if targetRole != "" {
		fmt.Fprintf(&b, "Target role: %s\n", targetRole)
	}
	if targetCompany != "" {
		fmt.Fprintf(&b, "Target company: %s\n", targetCompany)
	}
	fmt.Fprintf(&b, "\nResume text:\n%s\n", text)
	b.WriteString(`
Respond with JSON:
{
  "overall_score": 0-100,
  "ats_compatibility": 0-100,
  "strengths": ["..."],
  "improvements": [{"section": "...", "issue": "...", "suggestion": "..."}],
  "keyword_gaps": ["..."],
  "section_scores": {"experience": 0-100, "education": 0-100, "skills": 0-100, "formatting": 0-100},
  "summary": "..."
}`)
	return b.String()
}

package services

import (
	"context"
	"fmt"
	"skillquest/models"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor returns canned text per file URL.
type fakeExtractor struct {
	texts map[string]string
	err   error
}

func (e *fakeExtractor) Extract(ctx context.Context, fileURL string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.texts[fileURL], nil
}

func resumeText() string {
	return strings.Repeat("Led a team of engineers building distributed systems. ", 5)
}

func newResumeService(t *testing.T, generator Generator, extractor TextExtractor) (*ResumeService, *testServices) {
	t.Helper()
	ts := newTestServices(t)
	cache := NewGenerationService(ts.db)
	return NewResumeService(ts.db, generator, cache, extractor), ts
}

const resumeAnalysisJSON = `{"overall_score": 82, "ats_compatibility": 74, "strengths": ["impact"], "improvements": [{"section": "skills", "issue": "vague", "suggestion": "quantify"}], "keyword_gaps": ["Kubernetes"], "summary": "solid"}`

func TestAnalyze_RequiresFileURL(t *testing.T) {
	svc, _ := newResumeService(t,
		&countingGenerator{artifact: []byte(resumeAnalysisJSON)},
		&fakeExtractor{})

	_, err := svc.Analyze(context.Background(), 1, "  ", "resume.pdf", "", "")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAnalyze_RejectsShortText(t *testing.T) {
	generator := &countingGenerator{artifact: []byte(resumeAnalysisJSON)}
	svc, _ := newResumeService(t, generator,
		&fakeExtractor{texts: map[string]string{"https://cdn/scan.pdf": "just a scan"}})

	_, err := svc.Analyze(context.Background(), 1, "https://cdn/scan.pdf", "scan.pdf", "", "")
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "scan")
	assert.Zero(t, generator.calls.Load())
}

func TestAnalyze_PersistsRecordAndScores(t *testing.T) {
	generator := &countingGenerator{artifact: []byte(resumeAnalysisJSON)}
	svc, ts := newResumeService(t, generator,
		&fakeExtractor{texts: map[string]string{"https://cdn/resume.pdf": resumeText()}})
	user := createTestUser(t, ts.db, "applicant")

	result, err := svc.Analyze(context.Background(), user.ID, "https://cdn/resume.pdf", "resume.pdf", "Backend Engineer", "Acme")
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.NotZero(t, result.AnalysisID)
	assert.JSONEq(t, resumeAnalysisJSON, string(result.Analysis))

	var analysis models.ResumeAnalysis
	require.NoError(t, ts.db.First(&analysis, result.AnalysisID).Error)
	assert.Equal(t, user.ID, analysis.UserID)
	assert.Equal(t, "resume.pdf", analysis.FileName)
	assert.Equal(t, 82, analysis.OverallScore)
	assert.Equal(t, 74, analysis.ATSCompatibility)
	assert.NotEmpty(t, analysis.FileHash)
}

func TestAnalyze_IdenticalContentServedFromCache(t *testing.T) {
	generator := &countingGenerator{artifact: []byte(resumeAnalysisJSON)}
	svc, ts := newResumeService(t, generator, &fakeExtractor{texts: map[string]string{
		"https://cdn/v1.pdf": resumeText(),
		"https://cdn/v2.pdf": "  " + resumeText() + "\n", // same content, new upload
	}})
	user := createTestUser(t, ts.db, "reuploader")

	first, err := svc.Analyze(context.Background(), user.ID, "https://cdn/v1.pdf", "v1.pdf", "", "")
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := svc.Analyze(context.Background(), user.ID, "https://cdn/v2.pdf", "v2.pdf", "", "")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Zero(t, second.AnalysisID)
	assert.EqualValues(t, 1, generator.calls.Load())

	// Only the first analysis left a history row.
	var count int64
	ts.db.Model(&models.ResumeAnalysis{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestAnalyze_QuotaErrorPropagatesUncached(t *testing.T) {
	generator := &countingGenerator{err: fmt.Errorf("%w: model quota exhausted", ErrQuotaExceeded)}
	svc, ts := newResumeService(t, generator,
		&fakeExtractor{texts: map[string]string{"https://cdn/resume.pdf": resumeText()}})
	user := createTestUser(t, ts.db, "throttled")

	_, err := svc.Analyze(context.Background(), user.ID, "https://cdn/resume.pdf", "resume.pdf", "", "")
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// The failure was not cached: a retry hits the model again.
	_, err = svc.Analyze(context.Background(), user.ID, "https://cdn/resume.pdf", "resume.pdf", "", "")
	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.EqualValues(t, 2, generator.calls.Load())

	var count int64
	ts.db.Model(&models.ResumeAnalysis{}).Count(&count)
	assert.Zero(t, count)
}

func TestHistory_NewestFirst(t *testing.T) {
	generator := &countingGenerator{artifact: []byte(resumeAnalysisJSON)}
	svc, ts := newResumeService(t, generator, &fakeExtractor{texts: map[string]string{
		"https://cdn/a.pdf": resumeText() + " version one",
		"https://cdn/b.pdf": resumeText() + " version two",
	}})
	user := createTestUser(t, ts.db, "historian")

	_, err := svc.Analyze(context.Background(), user.ID, "https://cdn/a.pdf", "a.pdf", "", "")
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), user.ID, "https://cdn/b.pdf", "b.pdf", "", "")
	require.NoError(t, err)

	history, err := svc.History(user.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
}

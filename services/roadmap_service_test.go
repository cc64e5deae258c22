package services

import (
	"context"
	"encoding/json"
	"fmt"
	"skillquest/models"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoadmapArtifact(nodeCount int) json.RawMessage {
	var nodes []string
	for i := 0; i < nodeCount; i++ {
		nodes = append(nodes, fmt.Sprintf(
			`{"title": "Step %d", "description": "d", "node_type": "course", "difficulty": "Beginner", "xp_reward": 100, "time_estimate_hours": 5, "required_skills": ["Go"], "external_url": "", "background_theme": "forest"}`, i+1))
	}
	return json.RawMessage(fmt.Sprintf(`{
		"roadmap_title": "Backend Engineer Path",
		"roadmap_description": "From zero to backend engineer",
		"nodes": [%s],
		"skill_gaps": [{"skill": "Docker", "importance": 4}],
		"recommended_projects": [{"title": "URL Shortener", "description": "d", "category": "Backend", "difficulty": "Beginner", "xp_reward": 200, "required_skills": ["Go"]}],
		"recommended_courses": [{"title": "Go Basics", "platform": "Coursera", "url": "https://example.com", "duration_hours": 12, "difficulty": "Beginner", "is_free": true, "skills_covered": ["Go"]}],
		"estimated_completion_weeks": 24
	}`, strings.Join(nodes, ",")))
}

func testProfile() RoadmapProfile {
	return RoadmapProfile{
		Name:           "Sam",
		College:        "State",
		Major:          "CS",
		CareerGoal:     "Backend Engineer",
		TimelineMonths: 12,
		CurrentSkills:  []SkillLevel{{Skill: "Python", Level: "Intermediate"}},
		TargetSkills:   []SkillLevel{{Skill: "Go", Level: "Advanced"}},
	}
}

func newRoadmapService(ts *testServices, generator Generator) *RoadmapService {
	return NewRoadmapService(ts.db, generator, NewGenerationService(ts.db), ts.progression, ts.notifications)
}

func TestGenerateRoadmap_ValidatesProfile(t *testing.T) {
	ts := newTestServices(t)
	svc := newRoadmapService(ts, &countingGenerator{artifact: testRoadmapArtifact(16)})
	user := createTestUser(t, ts.db, "invalid")

	profile := testProfile()
	profile.CareerGoal = " "
	_, err := svc.Generate(context.Background(), user.ID, profile)
	require.ErrorIs(t, err, ErrInvalidArgument)

	profile = testProfile()
	profile.TimelineMonths = 0
	_, err = svc.Generate(context.Background(), user.ID, profile)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGenerateRoadmap_CreatesNodesSkillsAndAward(t *testing.T) {
	ts := newTestServices(t)
	generator := &countingGenerator{artifact: testRoadmapArtifact(16)}
	svc := newRoadmapService(ts, generator)
	user := createTestUser(t, ts.db, "onboarder")

	result, err := svc.Generate(context.Background(), user.ID, testProfile())
	require.NoError(t, err)

	assert.False(t, result.AlreadyGenerated)
	assert.Equal(t, "Backend Engineer Path", result.Title)
	assert.Len(t, result.Nodes, 16)
	assert.Equal(t, 24, result.EstimatedWeeks)
	assert.Equal(t, 100, result.XPAwarded)

	var nodes []models.RoadmapNode
	require.NoError(t, ts.db.Where("user_id = ?", user.ID).Order("order_index ASC").Find(&nodes).Error)
	require.Len(t, nodes, 16)
	for i, node := range nodes {
		if i < 3 {
			assert.Equal(t, models.StatusUnlocked, node.Status, "node %d", i)
		} else {
			assert.Equal(t, models.StatusLocked, node.Status, "node %d", i)
		}
	}

	// Skills: current (Python, proficiency 50), target (Go, gap), and the
	// model's gap (Docker).
	var skills []models.UserSkill
	require.NoError(t, ts.db.Where("user_id = ?", user.ID).Find(&skills).Error)
	byName := map[string]models.UserSkill{}
	for _, s := range skills {
		byName[s.SkillName] = s
	}
	assert.Equal(t, 50, byName["Python"].ProficiencyScore)
	assert.True(t, byName["Go"].IsGap)
	assert.True(t, byName["Docker"].IsGap)
	assert.Equal(t, 4, byName["Docker"].ImportanceScore)

	// Recommendations landed.
	var projectCount, courseCount int64
	ts.db.Model(&models.Project{}).Where("user_id = ?", user.ID).Count(&projectCount)
	ts.db.Model(&models.Course{}).Count(&courseCount)
	assert.EqualValues(t, 1, projectCount)
	assert.EqualValues(t, 1, courseCount)

	reloaded := reloadUser(t, ts.db, user.ID)
	assert.True(t, reloaded.OnboardingComplete)
	assert.Equal(t, "Backend Engineer", reloaded.CareerGoal)
	assert.Equal(t, 100, reloaded.TotalXP)
}

func TestGenerateRoadmap_FirstGenerationWins(t *testing.T) {
	ts := newTestServices(t)
	generator := &countingGenerator{artifact: testRoadmapArtifact(15)}
	svc := newRoadmapService(ts, generator)
	user := createTestUser(t, ts.db, "regen")

	_, err := svc.Generate(context.Background(), user.ID, testProfile())
	require.NoError(t, err)

	// A second call, even with a different profile, returns the existing
	// roadmap without touching the model.
	changed := testProfile()
	changed.CareerGoal = "Data Scientist"
	result, err := svc.Generate(context.Background(), user.ID, changed)
	require.NoError(t, err)

	assert.True(t, result.AlreadyGenerated)
	assert.Len(t, result.Nodes, 15)
	assert.EqualValues(t, 1, generator.calls.Load())

	// No second onboarding award either.
	assert.Equal(t, 100, reloadUser(t, ts.db, user.ID).TotalXP)
}

func TestGenerateRoadmap_ConcurrentCallsGenerateOnce(t *testing.T) {
	ts := newTestServices(t)
	generator := &countingGenerator{artifact: testRoadmapArtifact(15), delay: 50 * time.Millisecond}
	svc := newRoadmapService(ts, generator)
	user := createTestUser(t, ts.db, "simultaneous")

	const callers = 2
	results := make([]*RoadmapResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Generate(context.Background(), user.ID, testProfile())
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		if !results[i].AlreadyGenerated {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.EqualValues(t, 1, generator.calls.Load())

	var nodeCount int64
	ts.db.Model(&models.RoadmapNode{}).Where("user_id = ?", user.ID).Count(&nodeCount)
	assert.EqualValues(t, 15, nodeCount)

	// One onboarding award, not one per caller.
	assert.Equal(t, 100, reloadUser(t, ts.db, user.ID).TotalXP)
}

func TestGenerateRoadmap_GeneratorErrorsPropagate(t *testing.T) {
	ts := newTestServices(t)
	generator := &countingGenerator{err: fmt.Errorf("%w: quota", ErrQuotaExceeded)}
	svc := newRoadmapService(ts, generator)
	user := createTestUser(t, ts.db, "quota")

	_, err := svc.Generate(context.Background(), user.ID, testProfile())
	require.ErrorIs(t, err, ErrQuotaExceeded)

	var count int64
	ts.db.Model(&models.RoadmapNode{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)
}

func TestCompleteNode_AwardsAndUnlocksNext(t *testing.T) {
	ts := newTestServices(t)
	svc := newRoadmapService(ts, &countingGenerator{artifact: testRoadmapArtifact(16)})
	user := createTestUser(t, ts.db, "stepper")

	_, err := svc.Generate(context.Background(), user.ID, testProfile())
	require.NoError(t, err)

	nodes, err := svc.Nodes(user.ID)
	require.NoError(t, err)

	award, err := svc.CompleteNode(user.ID, nodes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 100, award.XPAwarded)

	// Node 3 (index) was locked; completing node 0 unlocks it.
	nodes, err = svc.Nodes(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, nodes[0].Status)
	assert.Equal(t, models.StatusUnlocked, nodes[3].Status)

	// Completing the same node twice fails without a second award.
	_, err = svc.CompleteNode(user.ID, nodes[0].ID)
	require.Error(t, err)
}

func TestCompleteNode_LockedNodeBlocked(t *testing.T) {
	ts := newTestServices(t)
	svc := newRoadmapService(ts, &countingGenerator{artifact: testRoadmapArtifact(16)})
	user := createTestUser(t, ts.db, "jumper")

	_, err := svc.Generate(context.Background(), user.ID, testProfile())
	require.NoError(t, err)

	nodes, err := svc.Nodes(user.ID)
	require.NoError(t, err)

	_, err = svc.CompleteNode(user.ID, nodes[10].ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestProficiencyForLevel(t *testing.T) {
	assert.Equal(t, 25, proficiencyForLevel("Beginner"))
	assert.Equal(t, 50, proficiencyForLevel("Intermediate"))
	assert.Equal(t, 75, proficiencyForLevel("Advanced"))
	assert.Equal(t, 100, proficiencyForLevel("Expert"))
	assert.Equal(t, 25, proficiencyForLevel("unknown"))
}

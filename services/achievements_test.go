package services

import (
	"skillquest/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRarity(t *testing.T) {
	assert.Equal(t, models.RarityCommon, projectRarity(1))
	assert.Equal(t, models.RarityCommon, projectRarity(5))
	assert.Equal(t, models.RarityRare, projectRarity(10))
	assert.Equal(t, models.RarityEpic, projectRarity(25))
	assert.Equal(t, models.RarityLegendary, projectRarity(50))
}

func TestStreakRarity(t *testing.T) {
	assert.Equal(t, models.RarityCommon, streakRarity(7))
	assert.Equal(t, models.RarityRare, streakRarity(14))
	assert.Equal(t, models.RarityEpic, streakRarity(30))
	assert.Equal(t, models.RarityEpic, streakRarity(60))
	assert.Equal(t, models.RarityLegendary, streakRarity(100))
}

func TestCheckProjectMilestone_ExactMatchOnly(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "builder")

	// Between milestones nothing unlocks.
	for _, count := range []int{2, 3, 4, 6, 11, 26} {
		achievement, err := ts.progression.CheckProjectMilestone(user.ID, count)
		require.NoError(t, err)
		assert.Nil(t, achievement, "count=%d", count)
	}

	achievement, err := ts.progression.CheckProjectMilestone(user.ID, 5)
	require.NoError(t, err)
	require.NotNil(t, achievement)
	assert.Equal(t, "5 Projects Completed!", achievement.Title)
	assert.Equal(t, models.RarityCommon, achievement.Rarity)
	assert.Equal(t, 250, achievement.XPBonus)
	assert.Equal(t, 50, achievement.CoinBonus)

	// The bonus landed in the ledger.
	reloaded := reloadUser(t, ts.db, user.ID)
	assert.Equal(t, 250, reloaded.TotalXP)
}

func TestCheckStreakMilestone(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "loyal")

	achievement, err := ts.progression.CheckStreakMilestone(user.ID, 8)
	require.NoError(t, err)
	assert.Nil(t, achievement)

	achievement, err = ts.progression.CheckStreakMilestone(user.ID, 30)
	require.NoError(t, err)
	require.NotNil(t, achievement)
	assert.Equal(t, "30 Day Streak!", achievement.Title)
	assert.Equal(t, models.RarityEpic, achievement.Rarity)
	assert.Equal(t, 300, achievement.XPBonus)
	assert.Equal(t, 150, achievement.CoinBonus)
}

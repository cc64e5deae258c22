package services

import (
	"skillquest/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresh_UpsertsAllPeriods(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "ranked")
	require.NoError(t, ts.db.Model(user).Update("total_xp", 1500).Error)

	ts.leaderboard.Refresh(user.ID)

	var entries []models.LeaderboardEntry
	require.NoError(t, ts.db.Where("user_id = ?", user.ID).Find(&entries).Error)
	require.Len(t, entries, 4)

	// Refresh again with a higher score; still 4 rows, updated in place.
	require.NoError(t, ts.db.Model(user).Update("total_xp", 2000).Error)
	ts.leaderboard.Refresh(user.ID)

	entries = nil
	require.NoError(t, ts.db.Where("user_id = ?", user.ID).Find(&entries).Error)
	require.Len(t, entries, 4)
	for _, entry := range entries {
		assert.Equal(t, 2000, entry.Score)
	}
}

func TestQuery_AllTimeRanksLiveFromUsers(t *testing.T) {
	ts := newTestServices(t)
	low := createTestUser(t, ts.db, "low")
	high := createTestUser(t, ts.db, "high")
	require.NoError(t, ts.db.Model(low).Update("total_xp", 100).Error)
	require.NoError(t, ts.db.Model(high).Update("total_xp", 900).Error)

	rows, total, err := ts.leaderboard.Query(models.PeriodAllTime, models.CategoryOverall, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)

	assert.Equal(t, high.ID, rows[0].UserID)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 900, rows[0].Score)
	assert.Equal(t, low.ID, rows[1].UserID)
	assert.Equal(t, 2, rows[1].Rank)
}

func TestQuery_ExcludesGuests(t *testing.T) {
	ts := newTestServices(t)
	member := createTestUser(t, ts.db, "member")
	guest := createTestUser(t, ts.db, "guest")
	require.NoError(t, ts.db.Model(guest).Updates(map[string]interface{}{
		"is_guest": true,
		"total_xp": 5000,
	}).Error)
	require.NoError(t, ts.db.Model(member).Update("total_xp", 10).Error)

	rows, total, err := ts.leaderboard.Query(models.PeriodAllTime, models.CategoryOverall, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, member.ID, rows[0].UserID)
}

func TestQuery_StreakAndCoinCategories(t *testing.T) {
	ts := newTestServices(t)
	a := createTestUser(t, ts.db, "streaky")
	b := createTestUser(t, ts.db, "wealthy")
	require.NoError(t, ts.db.Model(a).Updates(map[string]interface{}{"streak_days": 30, "total_coins": 5}).Error)
	require.NoError(t, ts.db.Model(b).Updates(map[string]interface{}{"streak_days": 2, "total_coins": 800}).Error)

	rows, _, err := ts.leaderboard.Query(models.PeriodAllTime, models.CategoryStreak, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, a.ID, rows[0].UserID)
	assert.Equal(t, 30, rows[0].Score)

	rows, _, err = ts.leaderboard.Query(models.PeriodAllTime, models.CategoryCoins, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, b.ID, rows[0].UserID)
	assert.Equal(t, 800, rows[0].Score)
}

func TestQuery_ProjectsCategoryCountsCompletions(t *testing.T) {
	ts := newTestServices(t)
	builder := createTestUser(t, ts.db, "probuilder")
	idler := createTestUser(t, ts.db, "idler")
	require.NoError(t, ts.db.Model(idler).Update("total_xp", 9999).Error)

	for _, title := range []string{"P1", "P2"} {
		project := createCatalogProject(t, ts, title, nil, nil)
		_, err := ts.projects.Unlock(builder.ID, project.ID)
		require.NoError(t, err)
		_, err = ts.projects.Complete(builder.ID, project.ID, CompleteRequest{GithubURL: "https://github.com/u/" + title})
		require.NoError(t, err)
	}

	rows, _, err := ts.leaderboard.Query(models.PeriodAllTime, models.CategoryProjects, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, builder.ID, rows[0].UserID)
	assert.Equal(t, 2, rows[0].Score)
	assert.Equal(t, 2, rows[0].ProjectsCompleted)
}

func TestQuery_CachedPeriodServesCacheRows(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "weekly")
	require.NoError(t, ts.db.Model(user).Update("total_xp", 700).Error)
	ts.leaderboard.Refresh(user.ID)

	rows, total, err := ts.leaderboard.Query(models.PeriodWeekly, models.CategoryOverall, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, 700, rows[0].Score)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "weekly", rows[0].Name)
}

func TestQuery_RejectsUnknownPeriodAndCategory(t *testing.T) {
	ts := newTestServices(t)

	_, _, err := ts.leaderboard.Query("hourly", models.CategoryOverall, 10, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = ts.leaderboard.Query(models.PeriodAllTime, "fame", 10, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

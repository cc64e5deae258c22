package services

import (
	"skillquest/models"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLevelForXP(t *testing.T) {
	cases := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{-50, 1},
		{999, 1},
		{1000, 2},
		{3999, 2},
		{4000, 3},
		{8999, 3},
		{9000, 4},
		{1000000, 32},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelForXP(tc.xp), "xp=%d", tc.xp)
	}
}

func TestCoinsForXP(t *testing.T) {
	assert.Equal(t, 0, CoinsForXP(0))
	assert.Equal(t, 0, CoinsForXP(-10))
	assert.Equal(t, 0, CoinsForXP(9))
	assert.Equal(t, 1, CoinsForXP(10))
	assert.Equal(t, 12, CoinsForXP(125))
	assert.Equal(t, 120, CoinsForXP(1200))
}

func TestXPForNextLevel(t *testing.T) {
	assert.Equal(t, 1000, XPForNextLevel(1))
	assert.Equal(t, 4000, XPForNextLevel(2))
	assert.Equal(t, 9000, XPForNextLevel(3))

	// Round-tripping: reaching the threshold puts you on the next level.
	for level := 1; level < 10; level++ {
		assert.Equal(t, level+1, LevelForXP(XPForNextLevel(level)))
	}
}

func TestAward_RejectsNonPositiveAmounts(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "zero")

	_, err := ts.progression.Award(user.ID, 0, "nothing", models.SourceCourse, models.XPMetadata{})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ts.progression.Award(user.ID, -50, "negative", models.SourceCourse, models.XPMetadata{})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAward_UnknownUser(t *testing.T) {
	ts := newTestServices(t)

	_, err := ts.progression.Award(9999, 100, "ghost", models.SourceCourse, models.XPMetadata{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAward_UpdatesUserAndLedger(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "earner")

	result, err := ts.progression.Award(user.ID, 500, "Completed course module", models.SourceCourse, models.XPMetadata{})
	require.NoError(t, err)

	assert.Equal(t, 500, result.XPAwarded)
	assert.Equal(t, 50, result.CoinsAwarded)
	assert.Equal(t, 500, result.NewXP)
	assert.Equal(t, 1, result.NewLevel)
	assert.False(t, result.LeveledUp)
	assert.Empty(t, result.Achievements)

	reloaded := reloadUser(t, ts.db, user.ID)
	assert.Equal(t, 500, reloaded.TotalXP)
	assert.Equal(t, 1, reloaded.CurrentLevel)
	assert.Equal(t, 50, reloaded.TotalCoins)

	var entries []models.XPHistory
	require.NoError(t, ts.db.Where("user_id = ?", user.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, 500, entries[0].Amount)
	assert.Equal(t, models.SourceCourse, entries[0].Source)
}

func TestAward_RefreshesLeaderboardCache(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "cached")

	_, err := ts.progression.Award(user.ID, 300, "course", models.SourceCourse, models.XPMetadata{})
	require.NoError(t, err)

	var entries []models.LeaderboardEntry
	require.NoError(t, ts.db.Where("user_id = ?", user.ID).Find(&entries).Error)
	require.Len(t, entries, 4)
	for _, entry := range entries {
		assert.Equal(t, models.CategoryOverall, entry.Category)
		assert.Equal(t, 300, entry.Score)
	}
}

func TestAward_LevelUpMintsMilestoneAchievement(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "climber")

	result, err := ts.progression.Award(user.ID, 1200, "big course", models.SourceCourse, models.XPMetadata{})
	require.NoError(t, err)

	// The base result reports the base event only; the bonus is its own
	// ledger entry.
	assert.Equal(t, 1200, result.NewXP)
	assert.Equal(t, 2, result.NewLevel)
	assert.True(t, result.LeveledUp)
	require.Len(t, result.Achievements, 1)
	assert.Equal(t, "Reached Level 2!", result.Achievements[0].Title)
	assert.Equal(t, models.RarityEpic, result.Achievements[0].Rarity)
	assert.Equal(t, 100, result.Achievements[0].XPBonus)
	assert.Equal(t, 50, result.Achievements[0].CoinBonus)

	reloaded := reloadUser(t, ts.db, user.ID)
	assert.Equal(t, 1300, reloaded.TotalXP) // 1200 base + 100 bonus
	assert.Equal(t, 2, reloaded.CurrentLevel)
	assert.Equal(t, 130, reloaded.TotalCoins) // 120 + 10 from the bonus

	var entries []models.XPHistory
	require.NoError(t, ts.db.Where("user_id = ?", user.ID).Order("id ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, 1200, entries[0].Amount)
	assert.Equal(t, 100, entries[1].Amount)
	assert.Equal(t, models.SourceAchievement, entries[1].Source)

	// Ledger sums must always match the user row.
	sum := 0
	for _, e := range entries {
		sum += e.Amount
	}
	assert.Equal(t, reloaded.TotalXP, sum)

	var notifications []models.Notification
	require.NoError(t, ts.db.Where("user_id = ?", user.ID).Find(&notifications).Error)
	types := map[string]int{}
	for _, n := range notifications {
		types[n.Type]++
	}
	assert.Equal(t, 1, types["level_up"])
	assert.Equal(t, 1, types["achievement"])
}

func TestAward_SplitAwardsReachSameTotal(t *testing.T) {
	ts := newTestServices(t)
	split := createTestUser(t, ts.db, "split")
	whole := createTestUser(t, ts.db, "whole")

	_, err := ts.progression.Award(split.ID, 600, "part one", models.SourceCourse, models.XPMetadata{})
	require.NoError(t, err)
	_, err = ts.progression.Award(split.ID, 600, "part two", models.SourceCourse, models.XPMetadata{})
	require.NoError(t, err)

	_, err = ts.progression.Award(whole.ID, 1200, "all at once", models.SourceCourse, models.XPMetadata{})
	require.NoError(t, err)

	a := reloadUser(t, ts.db, split.ID)
	b := reloadUser(t, ts.db, whole.ID)
	assert.Equal(t, b.TotalXP, a.TotalXP)
	assert.Equal(t, b.CurrentLevel, a.CurrentLevel)
}

func TestGrantAchievement_RoutesBonusThroughPipeline(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "granted")

	achievement, err := ts.progression.GrantAchievement(user.ID, models.AchievementProject,
		"First Steps", "Did the thing.", models.RarityCommon, 50, 10)
	require.NoError(t, err)
	require.NotNil(t, achievement)

	reloaded := reloadUser(t, ts.db, user.ID)
	assert.Equal(t, 50, reloaded.TotalXP)

	var entries []models.XPHistory
	require.NoError(t, ts.db.Where("user_id = ?", user.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SourceAchievement, entries[0].Source)
	assert.Equal(t, "Achievement: First Steps", entries[0].Reason)
}

func TestAward_RetriesOnConflictingWrite(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "contended")

	// Sneak a raw XP bump in between the read and the guarded update so the
	// first pass matches zero rows. Raw Exec skips update callbacks, so the
	// hook fires exactly once.
	conflicted := false
	require.NoError(t, ts.db.Callback().Update().Before("gorm:update").Register("test_conflict", func(tx *gorm.DB) {
		if conflicted || tx.Statement.Table != "users" {
			return
		}
		conflicted = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE users SET total_xp = total_xp + 40 WHERE id = ?", user.ID)
	}))
	defer ts.db.Callback().Update().Remove("test_conflict")

	result, err := ts.progression.Award(user.ID, 100, "contended award", models.SourceCourse, models.XPMetadata{})
	require.NoError(t, err)
	require.True(t, conflicted)

	// The interleaved +40 survives alongside the award.
	assert.Equal(t, 140, result.NewXP)
	assert.Equal(t, 140, reloadUser(t, ts.db, user.ID).TotalXP)

	var entries []models.XPHistory
	require.NoError(t, ts.db.Where("user_id = ?", user.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, 100, entries[0].Amount)
}

func TestAward_ConcurrentAwardsAllLand(t *testing.T) {
	ts := newTestServices(t)
	user := createTestUser(t, ts.db, "racer")

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ts.progression.Award(user.ID, 200, "parallel award", models.SourceCourse, models.XPMetadata{})
		}(i)
	}
	wg.Wait()
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
	}

	reloaded := reloadUser(t, ts.db, user.ID)
	assert.Equal(t, 800, reloaded.TotalXP)
	assert.Equal(t, 80, reloaded.TotalCoins)

	var sum int64
	require.NoError(t, ts.db.Model(&models.XPHistory{}).
		Where("user_id = ?", user.ID).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error)
	assert.EqualValues(t, 800, sum)
}

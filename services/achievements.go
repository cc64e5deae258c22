// services/achievements.go - milestone achievement rules
package services

import (
	"fmt"
	"skillquest/models"
)

// Milestone sets are matched exactly: a count that jumps past a threshold
// without landing on it does not grant the achievement retroactively.
var (
	projectMilestones = []int{1, 5, 10, 25, 50}
	streakMilestones  = []int{7, 14, 30, 60, 100}
)

func isMilestone(set []int, n int) bool {
	for _, m := range set {
		if m == n {
			return true
		}
	}
	return false
}

func projectRarity(count int) string {
	switch {
	case count >= 50:
		return models.RarityLegendary
	case count >= 25:
		return models.RarityEpic
	case count >= 10:
		return models.RarityRare
	default:
		return models.RarityCommon
	}
}

func streakRarity(days int) string {
	switch {
	case days >= 100:
		return models.RarityLegendary
	case days >= 30:
		return models.RarityEpic
	case days >= 14:
		return models.RarityRare
	default:
		return models.RarityCommon
	}
}

// CheckProjectMilestone grants the completed-projects achievement when the
// new total lands exactly on a milestone. Returns nil when nothing unlocks.
func (s *ProgressionService) CheckProjectMilestone(userID uint, completedCount int) (*models.Achievement, error) {
	if !isMilestone(projectMilestones, completedCount) {
		return nil, nil
	}
	return s.GrantAchievement(userID, models.AchievementProject,
		fmt.Sprintf("%d Projects Completed!", completedCount),
		fmt.Sprintf("You've successfully completed %d projects. Impressive portfolio!", completedCount),
		projectRarity(completedCount), completedCount*50, completedCount*10)
}

// CheckStreakMilestone grants the login-streak achievement when the streak
// lands exactly on a milestone.
func (s *ProgressionService) CheckStreakMilestone(userID uint, streakDays int) (*models.Achievement, error) {
	if !isMilestone(streakMilestones, streakDays) {
		return nil, nil
	}
	return s.GrantAchievement(userID, models.AchievementStreak,
		fmt.Sprintf("%d Day Streak!", streakDays),
		fmt.Sprintf("You've logged in %d days in a row. Consistency builds careers!", streakDays),
		streakRarity(streakDays), streakDays*10, streakDays*5)
}

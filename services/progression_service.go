// services/progression_service.go - XP ledger and award pipeline
package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"skillquest/models"
	"time"

	"gorm.io/gorm"
)

const (
	// XP granted for manually unlocking a project.
	UnlockXPReward = 50

	levelUpXPBonus   = 100
	levelUpCoinBonus = 50

	// Upper bound on the reward queue: a base award plus every cascading
	// achievement bonus it can trigger. Bonuses shrink relative to level
	// thresholds so real chains terminate long before this.
	maxRewardEvents = 16

	// Optimistic-lock retries on the per-user XP row.
	maxAwardRetries = 5
)

// LevelForXP derives the level from cumulative XP: floor(sqrt(xp/1000)) + 1.
// Level 1 at 0 XP, level 2 at 1000, level 3 at 4000.
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	return int(math.Sqrt(float64(xp)/1000.0)) + 1
}

// CoinsForXP converts an XP delta into coins at 10%.
func CoinsForXP(xpDelta int) int {
	if xpDelta <= 0 {
		return 0
	}
	return xpDelta / 10
}

// XPForNextLevel returns the cumulative XP needed to reach the next level.
func XPForNextLevel(currentLevel int) int {
	return currentLevel * currentLevel * 1000
}

type ProgressionService struct {
	db            *gorm.DB
	notifications *NotificationService
	leaderboard   *LeaderboardService
}

func NewProgressionService(db *gorm.DB, notifications *NotificationService, leaderboard *LeaderboardService) *ProgressionService {
	return &ProgressionService{db: db, notifications: notifications, leaderboard: leaderboard}
}

// AwardResult reports the outcome of the base award; cascaded achievement
// bonuses land as their own ledger entries and are listed in Achievements.
type AwardResult struct {
	XPAwarded    int                  `json:"xp_awarded"`
	CoinsAwarded int                  `json:"coins_awarded"`
	NewXP        int                  `json:"new_xp"`
	NewLevel     int                  `json:"new_level"`
	LeveledUp    bool                 `json:"leveled_up"`
	OldLevel     int                  `json:"old_level"`
	Achievements []models.Achievement `json:"achievements,omitempty"`
}

type rewardEvent struct {
	amount int
	reason string
	source string
	meta   models.XPMetadata
}

// Award runs one reward event through the pipeline: update the user's
// XP/level/coins, append a ledger entry, create level-up achievements and
// notifications, refresh the leaderboard cache. Achievement XP bonuses are
// processed through an explicit FIFO queue to a fixed point rather than by
// recursion, so a bonus that itself crosses a level boundary cascades in a
// bounded, observable way.
//
// The pipeline is not idempotent; at-most-once per user action is the
// caller's responsibility.
func (s *ProgressionService) Award(userID uint, amount int, reason, source string, meta models.XPMetadata) (*AwardResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: xp amount must be positive", ErrInvalidArgument)
	}

	queue := []rewardEvent{{amount: amount, reason: reason, source: source, meta: meta}}
	var base *AwardResult
	var unlocked []models.Achievement

	for processed := 0; len(queue) > 0; processed++ {
		if processed >= maxRewardEvents {
			log.Printf("reward queue for user %d truncated after %d events", userID, processed)
			break
		}
		ev := queue[0]
		queue = queue[1:]

		res, created, err := s.applyReward(userID, ev)
		if err != nil {
			if base == nil {
				return nil, err
			}
			// The base award is committed; a failed bonus must not undo it.
			log.Printf("achievement bonus award failed for user %d: %v", userID, err)
			break
		}
		if base == nil {
			base = res
		}

		for _, a := range created {
			unlocked = append(unlocked, a)
			if a.XPBonus > 0 {
				id := a.ID
				queue = append(queue, rewardEvent{
					amount: a.XPBonus,
					reason: "Achievement: " + a.Title,
					source: models.SourceAchievement,
					meta:   models.XPMetadata{AchievementID: &id},
				})
			}
		}
	}

	base.Achievements = unlocked
	return base, nil
}

// applyReward commits a single reward event and returns any achievements it
// unlocked. Level-up is computed against the state after this event, which
// is what keeps a base award and its bonus from minting the same level
// milestone twice.
func (s *ProgressionService) applyReward(userID uint, ev rewardEvent) (*AwardResult, []models.Achievement, error) {
	var res *AwardResult

	// Compare-and-swap retry loop keyed on total_xp: two concurrent awards
	// for the same user must both land, never overwrite each other.
	for attempt := 0; ; attempt++ {
		var user models.User
		if err := s.db.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
			}
			return nil, nil, err
		}

		oldXP := user.TotalXP
		oldLevel := user.CurrentLevel
		newXP := oldXP + ev.amount
		newLevel := LevelForXP(newXP)
		coins := CoinsForXP(ev.amount)

		update := s.db.Model(&models.User{}).
			Where("id = ? AND total_xp = ?", userID, oldXP).
			Updates(map[string]interface{}{
				"total_xp":      newXP,
				"current_level": newLevel,
				"total_coins":   gorm.Expr("total_coins + ?", coins),
				"last_activity": time.Now(),
			})
		if update.Error != nil {
			return nil, nil, update.Error
		}
		if update.RowsAffected > 0 {
			res = &AwardResult{
				XPAwarded:    ev.amount,
				CoinsAwarded: coins,
				NewXP:        newXP,
				NewLevel:     newLevel,
				LeveledUp:    newLevel > oldLevel,
				OldLevel:     oldLevel,
			}
			break
		}
		if attempt >= maxAwardRetries {
			return nil, nil, fmt.Errorf("failed to update xp for user %d after %d retries", userID, maxAwardRetries)
		}
	}

	history := models.XPHistory{
		UserID:   userID,
		Amount:   ev.amount,
		Reason:   ev.reason,
		Source:   ev.source,
		Metadata: models.MustJSON(ev.meta),
	}
	if err := s.db.Create(&history).Error; err != nil {
		return nil, nil, err
	}

	var created []models.Achievement
	if res.LeveledUp {
		achievement, err := s.createAchievement(userID, models.AchievementMilestone,
			fmt.Sprintf("Reached Level %d!", res.NewLevel),
			fmt.Sprintf("You've leveled up to level %d. Keep pushing forward!", res.NewLevel),
			models.RarityEpic, levelUpXPBonus, levelUpCoinBonus)
		if err == nil {
			created = append(created, *achievement)
		}

		s.notifications.Emit(userID,
			fmt.Sprintf("🎉 Level Up! You're now Level %d", res.NewLevel),
			fmt.Sprintf("Amazing work! You've earned %d coins as a bonus.", res.CoinsAwarded),
			"level_up",
			models.NotificationPayload{OldLevel: res.OldLevel, NewLevel: res.NewLevel, CoinsAwarded: res.CoinsAwarded})
	}

	s.leaderboard.Refresh(userID)

	return res, created, nil
}

// createAchievement persists the record and emits its notification. Failures
// are logged; the triggering award is never rolled back over an achievement.
func (s *ProgressionService) createAchievement(userID uint, achievementType, title, description, rarity string, xpBonus, coinBonus int) (*models.Achievement, error) {
	achievement := models.Achievement{
		UserID:      userID,
		Type:        achievementType,
		Title:       title,
		Description: description,
		Rarity:      rarity,
		XPBonus:     xpBonus,
		CoinBonus:   coinBonus,
	}
	if err := s.db.Create(&achievement).Error; err != nil {
		log.Printf("Failed to create achievement for user %d: %v", userID, err)
		return nil, err
	}

	id := achievement.ID
	s.notifications.Emit(userID, "🏆 Achievement Unlocked!", title, "achievement",
		models.NotificationPayload{AchievementID: &id, Rarity: rarity})

	return &achievement, nil
}

// GrantAchievement creates an achievement and routes its XP bonus back
// through the award pipeline. No dedup is performed: callers invoke it at
// most once per qualifying event.
func (s *ProgressionService) GrantAchievement(userID uint, achievementType, title, description, rarity string, xpBonus, coinBonus int) (*models.Achievement, error) {
	achievement, err := s.createAchievement(userID, achievementType, title, description, rarity, xpBonus, coinBonus)
	if err != nil {
		return nil, err
	}

	if xpBonus > 0 {
		id := achievement.ID
		if _, err := s.Award(userID, xpBonus, "Achievement: "+title, models.SourceAchievement,
			models.XPMetadata{AchievementID: &id}); err != nil {
			log.Printf("achievement bonus award failed for user %d: %v", userID, err)
		}
	}

	return achievement, nil
}

// History returns the newest ledger entries for a user.
func (s *ProgressionService) History(userID uint, limit, offset int) ([]models.XPHistory, int64, error) {
	var entries []models.XPHistory
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	var total int64
	s.db.Model(&models.XPHistory{}).Where("user_id = ?", userID).Count(&total)
	return entries, total, nil
}

// Achievements returns a user's achievements, newest first.
func (s *ProgressionService) Achievements(userID uint) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&achievements).Error
	return achievements, err
}

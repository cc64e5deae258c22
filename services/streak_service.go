// services/streak_service.go - daily login streaks and rewards
package services

import (
	"errors"
	"fmt"
	"log"
	"skillquest/models"
	"time"

	"gorm.io/gorm"
)

const (
	dailyBaseXP    = 10
	streakBonusCap = 50
)

type StreakService struct {
	db            *gorm.DB
	progression   *ProgressionService
	notifications *NotificationService
}

func NewStreakService(db *gorm.DB, progression *ProgressionService, notifications *NotificationService) *StreakService {
	return &StreakService{db: db, progression: progression, notifications: notifications}
}

type ClaimResult struct {
	AlreadyClaimed    bool `json:"already_claimed"`
	XPAwarded         int  `json:"xp_awarded"`
	BaseXP            int  `json:"base_xp"`
	StreakBonus       int  `json:"streak_bonus"`
	CoinsAwarded      int  `json:"coins_awarded"`
	CurrentStreak     int  `json:"current_streak"`
	NextRewardInHours int  `json:"next_reward_in_hours"`
}

// ClaimDaily awards the daily login reward at most once per UTC calendar
// day. Consecutive-day claims extend the streak; a missed day resets it to
// one. The bonus is streak*2 XP capped at 50.
func (s *StreakService) ClaimDaily(userID uint) (*ClaimResult, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil, err
	}

	now := time.Now().UTC()
	today := now.Format("2006-01-02")
	hoursLeft := 24 - now.Hour()

	if user.LastLoginDate != nil && *user.LastLoginDate == today {
		return &ClaimResult{
			AlreadyClaimed:    true,
			CurrentStreak:     user.StreakDays,
			NextRewardInHours: hoursLeft,
		}, nil
	}

	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	newStreak := 1
	if user.LastLoginDate != nil && *user.LastLoginDate == yesterday {
		newStreak = user.StreakDays + 1
	}

	streakBonus := newStreak * 2
	if streakBonus > streakBonusCap {
		streakBonus = streakBonusCap
	}
	totalXP := dailyBaseXP + streakBonus

	// Guarded update so two same-day claims cannot both win.
	update := s.db.Model(&models.User{}).
		Where("id = ? AND (last_login_date IS NULL OR last_login_date <> ?)", userID, today).
		Updates(map[string]interface{}{
			"streak_days":     newStreak,
			"last_login_date": today,
		})
	if update.Error != nil {
		return nil, update.Error
	}
	if update.RowsAffected == 0 {
		return &ClaimResult{
			AlreadyClaimed:    true,
			CurrentStreak:     user.StreakDays,
			NextRewardInHours: hoursLeft,
		}, nil
	}

	award, err := s.progression.Award(userID, totalXP, "Daily login reward", models.SourceDaily,
		models.XPMetadata{Streak: newStreak, StreakBonus: streakBonus})
	if err != nil {
		return nil, err
	}

	if _, err := s.progression.CheckStreakMilestone(userID, newStreak); err != nil {
		log.Printf("streak milestone check failed for user %d: %v", userID, err)
	}

	return &ClaimResult{
		XPAwarded:         totalXP,
		BaseXP:            dailyBaseXP,
		StreakBonus:       streakBonus,
		CoinsAwarded:      award.CoinsAwarded,
		CurrentStreak:     newStreak,
		NextRewardInHours: hoursLeft,
	}, nil
}

// Status reports the user's streak without claiming anything.
func (s *StreakService) Status(userID uint) (*ClaimResult, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil, err
	}

	now := time.Now().UTC()
	today := now.Format("2006-01-02")
	claimed := user.LastLoginDate != nil && *user.LastLoginDate == today

	return &ClaimResult{
		AlreadyClaimed:    claimed,
		CurrentStreak:     user.StreakDays,
		NextRewardInHours: 24 - now.Hour(),
	}, nil
}

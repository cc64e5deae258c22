// services/leaderboard_service.go - denormalized leaderboard cache
package services

import (
	"fmt"
	"log"
	"skillquest/models"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardService struct {
	db *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{db: db}
}

var leaderboardPeriods = []string{
	models.PeriodDaily,
	models.PeriodWeekly,
	models.PeriodMonthly,
	models.PeriodAllTime,
}

var validCategories = map[string]bool{
	models.CategoryOverall:  true,
	models.CategoryStreak:   true,
	models.CategoryCoins:    true,
	models.CategoryProjects: true,
}

// Refresh upserts the overall cache row for every period with the user's
// live total XP. Best effort: the users table stays authoritative and a
// stale cache row is corrected on the next award.
func (s *LeaderboardService) Refresh(userID uint) {
	var user models.User
	if err := s.db.Select("total_xp").First(&user, userID).Error; err != nil {
		log.Printf("leaderboard refresh skipped for user %d: %v", userID, err)
		return
	}

	for _, period := range leaderboardPeriods {
		entry := models.LeaderboardEntry{
			UserID:    userID,
			Period:    period,
			Category:  models.CategoryOverall,
			Score:     user.TotalXP,
			UpdatedAt: time.Now(),
		}
		err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "period"}, {Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
		}).Create(&entry).Error
		if err != nil {
			log.Printf("Failed to refresh leaderboard (%s) for user %d: %v", period, userID, err)
		}
	}
}

// LeaderboardRow is one ranked entry as served to clients.
type LeaderboardRow struct {
	Rank              int    `json:"rank"`
	UserID            uint   `json:"user_id"`
	Name              string `json:"name"`
	PhotoURL          string `json:"photo_url,omitempty"`
	Level             int    `json:"level"`
	College           string `json:"college,omitempty"`
	Major             string `json:"major,omitempty"`
	Score             int    `json:"score"`
	TotalXP           int    `json:"total_xp"`
	TotalCoins        int    `json:"total_coins"`
	StreakDays        int    `json:"streak_days"`
	ProjectsCompleted int    `json:"projects_completed"`
}

// Query returns a ranked page for the given period and category. The
// all_time period ranks directly off the users table so it is always live;
// other periods serve cache rows ranked by an external batch job, falling
// back to score order until ranks are populated.
func (s *LeaderboardService) Query(period, category string, limit, offset int) ([]LeaderboardRow, int64, error) {
	if period == "" {
		period = models.PeriodAllTime
	}
	if category == "" {
		category = models.CategoryOverall
	}
	if !isValidPeriod(period) {
		return nil, 0, fmt.Errorf("%w: unknown period %q", ErrInvalidArgument, period)
	}
	if !validCategories[category] {
		return nil, 0, fmt.Errorf("%w: unknown category %q", ErrInvalidArgument, category)
	}

	if period == models.PeriodAllTime {
		return s.queryLive(category, limit, offset)
	}
	return s.queryCache(period, category, limit, offset)
}

func isValidPeriod(period string) bool {
	for _, p := range leaderboardPeriods {
		if p == period {
			return true
		}
	}
	return false
}

func (s *LeaderboardService) queryLive(category string, limit, offset int) ([]LeaderboardRow, int64, error) {
	base := s.db.Model(&models.User{}).Where("is_guest = ?", false)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderColumn := "total_xp"
	switch category {
	case models.CategoryStreak:
		orderColumn = "streak_days"
	case models.CategoryCoins:
		orderColumn = "total_coins"
	}

	var users []models.User
	query := base.Session(&gorm.Session{}).Order(orderColumn + " DESC, id ASC")
	// Ranking by completed projects needs a join-side count, so fetch the
	// page candidates wide and re-sort below.
	if category != models.CategoryProjects {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}

	counts, err := s.completedCounts(users)
	if err != nil {
		return nil, 0, err
	}

	if category == models.CategoryProjects {
		sort.SliceStable(users, func(i, j int) bool {
			return counts[users[i].ID] > counts[users[j].ID]
		})
		if offset >= len(users) {
			users = nil
		} else {
			end := offset + limit
			if end > len(users) {
				end = len(users)
			}
			users = users[offset:end]
		}
	}

	rows := make([]LeaderboardRow, 0, len(users))
	for i, user := range users {
		row := rowForUser(&user, counts[user.ID])
		row.Rank = offset + i + 1
		switch category {
		case models.CategoryStreak:
			row.Score = user.StreakDays
		case models.CategoryCoins:
			row.Score = user.TotalCoins
		case models.CategoryProjects:
			row.Score = counts[user.ID]
		default:
			row.Score = user.TotalXP
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}

func (s *LeaderboardService) queryCache(period, category string, limit, offset int) ([]LeaderboardRow, int64, error) {
	base := s.db.Model(&models.LeaderboardEntry{}).
		Where("period = ? AND category = ?", period, category)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.LeaderboardEntry
	err := base.Session(&gorm.Session{}).
		Preload("User").
		Order("CASE WHEN rank IS NULL THEN 1 ELSE 0 END, rank ASC, score DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	rows := make([]LeaderboardRow, 0, len(entries))
	for i, entry := range entries {
		row := rowForUser(entry.User, 0)
		row.UserID = entry.UserID
		row.Score = entry.Score
		if entry.Rank != nil {
			row.Rank = *entry.Rank
		} else {
			row.Rank = offset + i + 1
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}

func (s *LeaderboardService) completedCounts(users []models.User) (map[uint]int, error) {
	counts := make(map[uint]int, len(users))
	if len(users) == 0 {
		return counts, nil
	}

	ids := make([]uint, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}

	var rows []struct {
		UserID uint
		Total  int
	}
	err := s.db.Model(&models.UserProjectProgress{}).
		Select("user_id, COUNT(*) AS total").
		Where("user_id IN ? AND status = ?", ids, models.StatusCompleted).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.UserID] = row.Total
	}
	return counts, nil
}

func rowForUser(user *models.User, completed int) LeaderboardRow {
	if user == nil {
		return LeaderboardRow{}
	}
	name := user.DisplayName
	if name == "" {
		name = user.Username
	}
	return LeaderboardRow{
		UserID:            user.ID,
		Name:              name,
		PhotoURL:          user.PhotoURL,
		Level:             user.CurrentLevel,
		College:           user.College,
		Major:             user.Major,
		TotalXP:           user.TotalXP,
		TotalCoins:        user.TotalCoins,
		StreakDays:        user.StreakDays,
		ProjectsCompleted: completed,
	}
}

package services

import (
	"skillquest/models"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with the full schema.
// MaxOpenConns is pinned to 1 so every query sees the same :memory: DB.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.XPHistory{},
		&models.Achievement{},
		&models.Notification{},
		&models.Project{},
		&models.ProjectPrerequisite{},
		&models.UserProjectProgress{},
		&models.UserSkill{},
		&models.LeaderboardEntry{},
		&models.RoadmapNode{},
		&models.Course{},
		&models.GenerationCacheEntry{},
		&models.ResumeAnalysis{},
	))
	return db
}

type testServices struct {
	db            *gorm.DB
	notifications *NotificationService
	leaderboard   *LeaderboardService
	progression   *ProgressionService
	projects      *ProjectService
	streaks       *StreakService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := newTestDB(t)
	notifications := NewNotificationService(db)
	leaderboard := NewLeaderboardService(db)
	progression := NewProgressionService(db, notifications, leaderboard)
	return &testServices{
		db:            db,
		notifications: notifications,
		leaderboard:   leaderboard,
		progression:   progression,
		projects:      NewProjectService(db, progression, notifications),
		streaks:       NewStreakService(db, progression, notifications),
	}
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	email := username + "@test.local"
	user := &models.User{
		Username:     username,
		Email:        &email,
		Password:     "hashed",
		DisplayName:  username,
		CurrentLevel: 1,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, id).Error)
	return &user
}

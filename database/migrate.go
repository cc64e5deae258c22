// database/migrate.go - Database Migration Runner
package database

import (
	"log"
	"skillquest/models"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
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
	); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	createIndexes()

	log.Println("✅ All migrations completed successfully")
}

// createIndexes adds the indexes AutoMigrate does not derive from tags.
func createIndexes() {
	db := GetDB()

	// Hot leaderboard paths
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_total_xp ON users(total_xp DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_streak ON users(streak_days DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_coins ON users(total_coins DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_guest ON users(is_guest)")

	// Ledger and notification feeds read newest-first per user
	db.Exec("CREATE INDEX IF NOT EXISTS idx_xp_history_user_created ON xp_history(user_id, created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC)")

	// Progress rows are scanned by (user, status) for counts and cascades
	db.Exec("CREATE INDEX IF NOT EXISTS idx_progress_user_status ON user_project_progress(user_id, status)")
}

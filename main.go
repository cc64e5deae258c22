// main.go
package main

import (
	"log"
	"os"
	"skillquest/database"
	"skillquest/handlers"
	"skillquest/middleware"
	"skillquest/services"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	validateEnvironment()

	// Initialize database
	database.InitDB()
	defer database.CloseDB()

	// Wire handlers to services. The Gemini client is optional: without a
	// key the AI endpoints return errors but everything else works.
	var generator services.Generator
	if client, err := services.NewGeminiClient(); err != nil {
		log.Printf("Warning: AI generation disabled: %v", err)
		generator = services.UnavailableGenerator{}
	} else {
		generator = client
	}
	handlers.InitHandlers(database.GetDB(), generator, services.NewHTTPTextExtractor())

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// Apply rate limiting to all routes
	app.Use(middleware.FiberRateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.FiberAuthRateLimitMiddleware())
	authGroup.Post("/guest", handlers.GuestLogin)
	authGroup.Post("/login", handlers.Login)
	authGroup.Post("/register", handlers.Register)
	authGroup.Post("/upgrade", middleware.AuthMiddleware, handlers.UpgradeGuest)

	// User routes
	userGroup := api.Group("/users")
	userGroup.Use(middleware.AuthMiddleware)
	userGroup.Get("/me", handlers.GetMe)
	userGroup.Put("/me", handlers.UpdateProfile)
	userGroup.Get("/me/skills", handlers.GetSkills)
	userGroup.Post("/me/skills", handlers.UpsertSkill)

	// Progression routes
	progressionGroup := api.Group("/progression")
	progressionGroup.Use(middleware.AuthMiddleware)
	progressionGroup.Get("/", handlers.GetProgression)
	progressionGroup.Post("/xp", handlers.AwardXP)
	progressionGroup.Get("/history", handlers.GetXPHistory)
	progressionGroup.Get("/achievements", handlers.GetAchievements)

	// Daily streak routes
	dailyGroup := api.Group("/daily")
	dailyGroup.Use(middleware.AuthMiddleware)
	dailyGroup.Post("/claim", handlers.ClaimDailyReward)
	dailyGroup.Get("/status", handlers.GetStreakStatus)

	// Project routes
	projectGroup := api.Group("/projects")
	projectGroup.Use(middleware.AuthMiddleware)
	projectGroup.Get("/", handlers.ListProjects)
	projectGroup.Get("/:id", handlers.GetProject)
	projectGroup.Post("/:id/unlock", handlers.UnlockProject)
	projectGroup.Post("/:id/complete", handlers.CompleteProject)

	// Leaderboard routes
	api.Get("/leaderboard", handlers.GetLeaderboard)

	// Roadmap routes; generation is rate limited separately
	roadmapGroup := api.Group("/roadmap")
	roadmapGroup.Use(middleware.AuthMiddleware)
	roadmapGroup.Post("/generate", middleware.FiberGenerationRateLimitMiddleware(), handlers.GenerateRoadmap)
	roadmapGroup.Get("/", handlers.GetRoadmap)
	roadmapGroup.Post("/nodes/:id/complete", handlers.CompleteRoadmapNode)

	// Resume routes
	resumeGroup := api.Group("/resume")
	resumeGroup.Use(middleware.AuthMiddleware)
	resumeGroup.Post("/analyze", middleware.FiberGenerationRateLimitMiddleware(), handlers.AnalyzeResume)
	resumeGroup.Get("/history", handlers.GetResumeHistory)

	// Notification routes
	notificationGroup := api.Group("/notifications")
	notificationGroup.Use(middleware.AuthMiddleware)
	notificationGroup.Get("/", handlers.GetNotifications)
	notificationGroup.Put("/:id/read", handlers.MarkNotificationRead)
	notificationGroup.Put("/read-all", handlers.MarkAllNotificationsRead)

	// Admin routes
	adminGroup := api.Group("/admin")
	adminGroup.Post("/login", middleware.FiberAuthRateLimitMiddleware(), handlers.AdminLogin)
	adminGroup.Post("/projects", middleware.AdminAuthMiddleware, handlers.CreateProject)
	adminGroup.Post("/projects/:id/prerequisites", middleware.AdminAuthMiddleware, handlers.AddPrerequisite)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 HTTP server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("🔐 JWT Secret configured: %v", os.Getenv("JWT_SECRET") != "")
	log.Printf("🤖 AI generation configured: %v", os.Getenv("GEMINI_API_KEY") != "")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	if os.Getenv("APP_ENV") == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
		if os.Getenv("GEMINI_API_KEY") == "" {
			log.Println("WARNING: GEMINI_API_KEY not set, roadmap and resume endpoints will fail")
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

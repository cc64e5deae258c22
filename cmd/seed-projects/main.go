// cmd/seed-projects - imports a project catalog from a JSON file
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"skillquest/models"
	"skillquest/services"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type catalogProject struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	Difficulty        string   `json:"difficulty"`
	XPReward          int      `json:"xp_reward"`
	CoinReward        int      `json:"coin_reward"`
	TimeEstimateHours int      `json:"time_estimate_hours"`
	RequiredSkills    []string `json:"required_skills"`
	Tasks             []string `json:"tasks"`
	Prerequisites     []string `json:"prerequisites"` // titles of earlier entries in the file
}

func main() {
	path := flag.String("file", "./data/projects.json", "path to the project catalog JSON")
	flag.Parse()

	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := db.AutoMigrate(&models.Project{}, &models.ProjectPrerequisite{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatal("Failed to read catalog file:", err)
	}

	var catalog []catalogProject
	if err := json.Unmarshal(data, &catalog); err != nil {
		log.Fatal("Failed to parse catalog JSON:", err)
	}

	fmt.Printf("Found %d projects\n\n", len(catalog))

	projectService := services.NewProjectService(db, nil, nil)

	// Titles resolve to IDs as the catalog is imported in order, so a
	// prerequisite must appear earlier in the file than its dependents.
	idsByTitle := map[string]uint{}
	imported, skipped := 0, 0

	for _, entry := range catalog {
		var existing models.Project
		if err := db.Where("title = ? AND user_id IS NULL", entry.Title).First(&existing).Error; err == nil {
			idsByTitle[entry.Title] = existing.ID
			skipped++
			continue
		}

		var prerequisiteIDs []uint
		for _, title := range entry.Prerequisites {
			id, ok := idsByTitle[title]
			if !ok {
				log.Fatalf("Project %q lists unknown prerequisite %q (prerequisites must appear earlier in the file)", entry.Title, title)
			}
			prerequisiteIDs = append(prerequisiteIDs, id)
		}

		project := models.Project{
			Title:             entry.Title,
			Description:       entry.Description,
			Category:          entry.Category,
			Difficulty:        entry.Difficulty,
			XPReward:          entry.XPReward,
			CoinReward:        entry.CoinReward,
			TimeEstimateHours: entry.TimeEstimateHours,
			RequiredSkills:    models.MustJSON(entry.RequiredSkills),
			Tasks:             models.MustJSON(entry.Tasks),
		}
		if err := projectService.CreateProject(&project, prerequisiteIDs); err != nil {
			log.Fatalf("Failed to import %q: %v", entry.Title, err)
		}

		idsByTitle[entry.Title] = project.ID
		imported++
		fmt.Printf("Imported: %s\n", entry.Title)
	}

	fmt.Printf("\nDone. %d imported, %d already present.\n", imported, skipped)
}

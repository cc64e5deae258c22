// services/generation_service.go - idempotent AI artifact cache
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"skillquest/models"
	"skillquest/utils"

	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GenerationService struct {
	db    *gorm.DB
	group singleflight.Group
}

func NewGenerationService(db *gorm.DB) *GenerationService {
	return &GenerationService{db: db}
}

// GenerateFunc produces an artifact. It is invoked only on a cache miss
// and its result is persisted; errors are never cached.
type GenerateFunc func() (json.RawMessage, error)

type GenerationResult struct {
	Artifact json.RawMessage `json:"artifact"`
	Cached   bool            `json:"cached"`
	Hash     string          `json:"hash"`
}

// GetOrGenerate returns the cached artifact for (user, type, input) or
// invokes generate once and persists the result. Concurrent calls with
// the same key share one in-flight generation per process; the unique
// index on generation_cache backstops races across processes, where the
// loser of the insert adopts the winner's artifact.
func (s *GenerationService) GetOrGenerate(userID uint, artifactType, normalizedInput string, generate GenerateFunc) (*GenerationResult, error) {
	hash := utils.ContentHash(normalizedInput)
	key := fmt.Sprintf("%d:%s:%s", userID, artifactType, hash)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if cached, err := s.lookup(userID, artifactType, hash); err != nil {
			return nil, err
		} else if cached != nil {
			return &GenerationResult{Artifact: cached, Cached: true, Hash: hash}, nil
		}

		artifact, err := generate()
		if err != nil {
			return nil, err
		}

		entry := models.GenerationCacheEntry{
			UserID:       userID,
			ArtifactType: artifactType,
			ContentHash:  hash,
			Artifact:     datatypes.JSON(artifact),
		}
		result := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "artifact_type"}, {Name: "content_hash"}},
			DoNothing: true,
		}).Create(&entry)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			// Another process won the insert; its artifact is canonical.
			cached, err := s.lookup(userID, artifactType, hash)
			if err != nil {
				return nil, err
			}
			return &GenerationResult{Artifact: cached, Cached: true, Hash: hash}, nil
		}

		return &GenerationResult{Artifact: artifact, Cached: false, Hash: hash}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*GenerationResult), nil
}

func (s *GenerationService) lookup(userID uint, artifactType, hash string) (json.RawMessage, error) {
	var entry models.GenerationCacheEntry
	err := s.db.Where("user_id = ? AND artifact_type = ? AND content_hash = ?", userID, artifactType, hash).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(entry.Artifact), nil
}

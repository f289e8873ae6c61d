package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"engagement-engine/engine"
	"engagement-engine/models"

	"gorm.io/gorm"
)

// Store is the persistence contract of the progression service. Load returns
// engine.ErrNotFound for an unknown user. Save writes the new state and any
// completion records as one unit.
type Store interface {
	Load(ctx context.Context, externalUserID string) (*models.UserProgress, error)
	Create(ctx context.Context, p *models.UserProgress) error
	Save(ctx context.Context, p *models.UserProgress, records []models.MissionCompletionRecord) error
	ListCompletions(ctx context.Context, externalUserID string, page, size int) ([]models.MissionCompletionRecord, int64, error)
}

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Load(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: progress record for %s", engine.ErrNotFound, externalUserID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", engine.ErrPersistence, externalUserID, err)
	}
	if prog.Missions == nil {
		prog.Missions = []models.Mission{}
	}
	if prog.Badges == nil {
		prog.Badges = []string{}
	}
	return &prog, nil
}

func (s *GormStore) Create(ctx context.Context, p *models.UserProgress) error {
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("%w: create %s: %v", engine.ErrPersistence, p.ExternalUserID, err)
	}
	return nil
}

func (s *GormStore) Save(ctx context.Context, p *models.UserProgress, records []models.MissionCompletionRecord) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save %s: %v", engine.ErrPersistence, p.ExternalUserID, err)
	}
	return nil
}

// ListCompletions pages through a user's completion history, newest first.
func (s *GormStore) ListCompletions(ctx context.Context, externalUserID string, page, size int) ([]models.MissionCompletionRecord, int64, error) {
	page, size = normalizePage(page, size)
	db := s.DB.WithContext(ctx)

	var total int64
	if err := db.Model(&models.MissionCompletionRecord{}).
		Where("external_user_id = ?", externalUserID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count completions: %v", engine.ErrPersistence, err)
	}

	var records []models.MissionCompletionRecord
	if err := db.Where("external_user_id = ?", externalUserID).
		Order("completed_at DESC, id").
		Limit(size).Offset((page - 1) * size).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: list completions: %v", engine.ErrPersistence, err)
	}
	return records, total, nil
}

// ListUnarchived returns up to limit records not yet shipped to the archive, oldest first.
func (s *GormStore) ListUnarchived(ctx context.Context, limit int) ([]models.MissionCompletionRecord, error) {
	var records []models.MissionCompletionRecord
	err := s.DB.WithContext(ctx).
		Where("archived_at IS NULL").
		Order("completed_at ASC, id").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list unarchived: %v", engine.ErrPersistence, err)
	}
	return records, nil
}

func (s *GormStore) MarkArchived(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.DB.WithContext(ctx).
		Model(&models.MissionCompletionRecord{}).
		Where("id IN ?", ids).
		Update("archived_at", at).Error
	if err != nil {
		return fmt.Errorf("%w: mark archived: %v", engine.ErrPersistence, err)
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository persists opaque per-session values in session_entries.
type SessionRepository interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry model.SessionEntry
	err := r.db.WithContext(ctx).Where("session_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		logger.Error("Failed to read session entry from database", err, logger.Fields{
			"key": key,
		})
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (r *sessionRepository) Set(ctx context.Context, key string, value []byte) error {
	entry := model.SessionEntry{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		logger.Error("Failed to write session entry to database", err, logger.Fields{
			"key":   key,
			"bytes": len(value),
		})
		return err
	}

	logger.Debug("Session entry written to database", logger.Fields{
		"key":   key,
		"bytes": len(value),
	})
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("session_key = ?", key).Delete(&model.SessionEntry{}).Error; err != nil {
		logger.Error("Failed to delete session entry from database", err, logger.Fields{
			"key": key,
		})
		return err
	}
	return nil
}

// DeleteOlderThan removes entries not written since cutoff and returns how many went.
func (r *sessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&model.SessionEntry{})
	if result.Error != nil {
		logger.Error("Failed to delete stale session entries", result.Error, logger.Fields{
			"cutoff": cutoff,
		})
		return 0, result.Error
	}

	logger.Info("Stale session entries deleted", logger.Fields{
		"cutoff":  cutoff,
		"deleted": result.RowsAffected,
	})
	return result.RowsAffected, nil
}

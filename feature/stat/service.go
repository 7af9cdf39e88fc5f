package stat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"game-sync/feature/stat/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service errors.
var (
	ErrStatNotFound  = errors.New("stat not found")
	ErrUpdateTooSoon = errors.New("stat was updated too recently")
)

// Service owns game stat definitions and per-player values.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a stat service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Find resolves a stat definition by its internal name within a game.
func (s *Service) Find(ctx context.Context, gameID uint, internalName string) (*models.GameStat, error) {
	var stat models.GameStat
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND internal_name = ?", gameID, internalName).
		First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stat: %w", err)
	}
	return &stat, nil
}

// Track sets a player's current value for a stat. The value is clamped to
// the stat's bounds, and updates arriving inside MinTimeBetweenUpdates of the
// previous one are rejected.
func (s *Service) Track(ctx context.Context, stat *models.GameStat, playerID string, value float64) (*models.PlayerGameStat, error) {
	value = stat.Clamp(value)

	var playerStat models.PlayerGameStat
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("player_id = ? AND stat_id = ?", playerID, stat.ID).First(&playerStat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			playerStat = models.PlayerGameStat{PlayerID: playerID, StatID: stat.ID, Value: value}
			return tx.Create(&playerStat).Error
		}
		if err != nil {
			return fmt.Errorf("failed to load player stat: %w", err)
		}

		if stat.MinTimeBetweenUpdates > 0 {
			earliest := playerStat.UpdatedAt.Add(time.Duration(stat.MinTimeBetweenUpdates) * time.Second)
			if time.Now().Before(earliest) {
				return ErrUpdateTooSoon
			}
		}

		playerStat.Value = value
		return tx.Save(&playerStat).Error
	})
	if err != nil {
		return nil, err
	}

	if stat.Global {
		if err := s.db.WithContext(ctx).Model(stat).
			Update("global_value", gorm.Expr("global_value + ?", value)).Error; err != nil {
			s.logger.Error("Failed to roll up global stat", zap.String("stat", stat.InternalName), zap.Error(err))
		}
	}

	playerStat.Stat = *stat
	return &playerStat, nil
}

package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	gamemodels "game-sync/feature/game/models"
	"game-sync/feature/leaderboard/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLeaderboardNotFound is returned when a leaderboard cannot be resolved
// by game and internal name.
var ErrLeaderboardNotFound = errors.New("leaderboard not found")

// Service implements the leaderboard entry write path and ranking queries.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a leaderboard service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Find resolves a leaderboard by its internal name within a game.
func (s *Service) Find(ctx context.Context, gameID uint, internalName string) (*models.Leaderboard, error) {
	var lb models.Leaderboard
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND internal_name = ?", gameID, internalName).
		First(&lb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLeaderboardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find leaderboard: %w", err)
	}
	return &lb, nil
}

// Create stores a new leaderboard definition. The internal name is unique
// within the game.
func (s *Service) Create(ctx context.Context, lb *models.Leaderboard) error {
	if err := s.db.WithContext(ctx).Create(lb).Error; err != nil {
		return fmt.Errorf("failed to create leaderboard: %w", err)
	}
	return nil
}

// Delete removes a leaderboard and all of its entries.
func (s *Service) Delete(ctx context.Context, lb *models.Leaderboard) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("leaderboard_id = ?", lb.ID).Delete(&models.LeaderboardEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete entries: %w", err)
		}
		if err := tx.Delete(lb).Error; err != nil {
			return fmt.Errorf("failed to delete leaderboard: %w", err)
		}
		return nil
	})
}

// SubmitResult is the outcome of one score submission.
type SubmitResult struct {
	Entry *models.LeaderboardEntry `json:"entry"`
	// Created is true when the submission inserted a new entry row.
	Created bool `json:"created"`
	// Updated is true when an existing live entry was overwritten. A
	// non-improving score on a unique leaderboard returns the existing
	// entry with Updated false.
	Updated bool `json:"updated"`
	// Position is the zero-based rank of the entry among visible,
	// non-archived entries.
	Position int `json:"position"`
}

// SubmitScore writes one score for a player alias.
//
// Non-unique leaderboards always get a new row. Unique leaderboards keep at
// most one live entry per alias (per prop set when UniqueByProps is on): the
// player's live entry is looked up under a row lock and only overwritten when
// the incoming score improves on it under the sort mode. An overwrite
// refreshes CreatedAt to now, or to the supplied continuity timestamp. The
// returned position is counted inside the same transaction as the write.
func (s *Service) SubmitScore(ctx context.Context, lb *models.Leaderboard, aliasID uint, score float64, props models.PropSet, at *time.Time) (*SubmitResult, error) {
	var result *SubmitResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !lb.Unique {
			entry, err := s.insertEntry(tx, lb, aliasID, score, props, at)
			if err != nil {
				return err
			}
			result = &SubmitResult{Entry: entry, Created: true}
			return s.rank(tx, lb, result)
		}

		if err := s.lockSubmitKey(tx, aliasID); err != nil {
			return err
		}
		existing, err := s.lockLiveEntry(tx, lb, aliasID, props)
		if err != nil {
			return err
		}

		switch {
		case existing == nil:
			entry, err := s.insertEntry(tx, lb, aliasID, score, props, at)
			if err != nil {
				return err
			}
			result = &SubmitResult{Entry: entry, Created: true}
		case !lb.Better(score, existing.Score):
			result = &SubmitResult{Entry: existing}
		default:
			existing.Score = score
			existing.Props = props
			existing.CreatedAt = submittedAt(at)
			if err := tx.Save(existing).Error; err != nil {
				return fmt.Errorf("failed to update entry: %w", err)
			}
			result = &SubmitResult{Entry: existing, Updated: true}
		}
		return s.rank(tx, lb, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) rank(tx *gorm.DB, lb *models.Leaderboard, result *SubmitResult) error {
	position, err := s.position(tx, lb, result.Entry)
	if err != nil {
		return err
	}
	result.Position = position
	return nil
}

// lockSubmitKey serializes concurrent submissions for one alias. A player's
// first submission has no live entry row to lock, so two writers could both
// see nothing and both insert; locking the alias row first closes that gap.
func (s *Service) lockSubmitKey(tx *gorm.DB, aliasID uint) error {
	// sqlite serializes writers on its own and rejects FOR UPDATE.
	if tx.Dialector.Name() == "sqlite" {
		return nil
	}
	var alias gamemodels.PlayerAlias
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&alias, aliasID).Error; err != nil {
		return fmt.Errorf("failed to lock alias: %w", err)
	}
	return nil
}

// lockLiveEntry fetches the alias's live (visible, non-archived) entry under
// a row lock so concurrent submissions for the same alias serialize. With
// UniqueByProps the entry must also carry an equal prop set; prop equality is
// order-independent, so the match happens here rather than in SQL.
func (s *Service) lockLiveEntry(tx *gorm.DB, lb *models.Leaderboard, aliasID uint, props models.PropSet) (*models.LeaderboardEntry, error) {
	query := tx.Where("leaderboard_id = ? AND player_alias_id = ? AND hidden = ?", lb.ID, aliasID, false).
		Order("created_at DESC, id DESC")

	// sqlite serializes writers on its own and rejects FOR UPDATE.
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var entries []models.LeaderboardEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load live entries: %w", err)
	}
	for i := range entries {
		if !lb.UniqueByProps || entries[i].Props.Equal(props) {
			return &entries[i], nil
		}
	}
	return nil, nil
}

func (s *Service) insertEntry(tx *gorm.DB, lb *models.Leaderboard, aliasID uint, score float64, props models.PropSet, at *time.Time) (*models.LeaderboardEntry, error) {
	entry := models.LeaderboardEntry{
		LeaderboardID: lb.ID,
		PlayerAliasID: aliasID,
		Score:         score,
		Props:         props,
		CreatedAt:     submittedAt(at),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	return &entry, nil
}

func submittedAt(at *time.Time) time.Time {
	if at != nil {
		return *at
	}
	return time.Now()
}

// Position returns the zero-based rank of the entry on its leaderboard.
// Ranking covers visible, non-archived entries under the sort mode, ties
// broken by earliest CreatedAt, then lowest id.
func (s *Service) Position(ctx context.Context, lb *models.Leaderboard, entry *models.LeaderboardEntry) (int, error) {
	return s.position(s.db.WithContext(ctx), lb, entry)
}

func (s *Service) position(db *gorm.DB, lb *models.Leaderboard, entry *models.LeaderboardEntry) (int, error) {
	better := "score > ?"
	if lb.SortMode == models.SortModeAsc {
		better = "score < ?"
	}

	var ahead int64
	err := db.Model(&models.LeaderboardEntry{}).
		Where("leaderboard_id = ? AND hidden = ?", lb.ID, false).
		Where(fmt.Sprintf("(%s OR (score = ? AND (created_at < ? OR (created_at = ? AND id < ?))))", better),
			entry.Score, entry.Score, entry.CreatedAt, entry.CreatedAt, entry.ID).
		Count(&ahead).Error
	if err != nil {
		return 0, fmt.Errorf("failed to rank entry: %w", err)
	}
	return int(ahead), nil
}

// GetEntries returns one ranked page of visible entries.
func (s *Service) GetEntries(ctx context.Context, lb *models.Leaderboard, page, pageSize int) ([]models.LeaderboardEntry, error) {
	order := "score DESC, created_at ASC, id ASC"
	if lb.SortMode == models.SortModeAsc {
		order = "score ASC, created_at ASC, id ASC"
	}

	var entries []models.LeaderboardEntry
	err := s.db.WithContext(ctx).Preload("PlayerAlias").
		Where("leaderboard_id = ? AND hidden = ?", lb.ID, false).
		Order(order).
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	return entries, nil
}

// StreamEntries walks all visible entries of a leaderboard oldest-id-first
// with keyset pagination, never materializing the whole table. The callback
// returns false to stop early.
func (s *Service) StreamEntries(ctx context.Context, leaderboardID uint, pageSize int, fn func(entry models.LeaderboardEntry) (bool, error)) error {
	var cursor uint
	for {
		var batch []models.LeaderboardEntry
		err := s.db.WithContext(ctx).Preload("PlayerAlias").
			Where("leaderboard_id = ? AND hidden = ? AND id > ?", leaderboardID, false, cursor).
			Order("id ASC").
			Limit(pageSize).
			Find(&batch).Error
		if err != nil {
			return fmt.Errorf("failed to stream entries: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		for _, entry := range batch {
			keepGoing, err := fn(entry)
			if err != nil {
				return err
			}
			if !keepGoing {
				return nil
			}
		}
		cursor = batch[len(batch)-1].ID
	}
}

// SetEntryVisibility toggles an entry's hidden flag.
func (s *Service) SetEntryVisibility(ctx context.Context, entryID uint, hidden bool) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	if err := s.db.WithContext(ctx).First(&entry, entryID).Error; err != nil {
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}
	entry.Hidden = hidden
	if err := s.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	return &entry, nil
}

// ArchiveEntry soft-deletes an entry. The remote counterpart is cleaned up
// later by the platform sweep once its link has been nulled.
func (s *Service) ArchiveEntry(ctx context.Context, entryID uint) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	if err := s.db.WithContext(ctx).First(&entry, entryID).Error; err != nil {
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&entry).Error; err != nil {
		return nil, fmt.Errorf("failed to archive entry: %w", err)
	}
	s.logger.Info("Entry archived", zap.Uint("entry_id", entry.ID), zap.Uint("leaderboard_id", entry.LeaderboardID))
	return &entry, nil
}

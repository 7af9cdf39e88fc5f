package steamworks

import (
	"context"
	"errors"
	"fmt"

	gamemodels "game-sync/feature/game/models"
	imodels "game-sync/feature/integration/models"
	lbmodels "game-sync/feature/leaderboard/models"
	statmodels "game-sync/feature/stat/models"
	"game-sync/feature/steamworks/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HandleLeaderboardCreated creates the Steam counterpart of a new local
// leaderboard and records the mapping.
func (s *Service) HandleLeaderboardCreated(ctx context.Context, it *imodels.Integration, lb *lbmodels.Leaderboard) error {
	api, err := s.apiFor(it)
	if err != nil {
		return err
	}

	remote, record, err := api.findOrCreateLeaderboard(ctx, lb.InternalName, lb.SortMode)
	s.recordEvent(s.db, it.ID, record)
	if err != nil {
		return err
	}

	_, _, err = upsertMapping(s.db, remote.ID, lb.ID)
	return err
}

// HandleLeaderboardDeleted removes the Steam leaderboard together with the
// local mapping and its entry links.
func (s *Service) HandleLeaderboardDeleted(ctx context.Context, it *imodels.Integration, lb *lbmodels.Leaderboard) error {
	api, err := s.apiFor(it)
	if err != nil {
		return err
	}

	mapping, err := findMappingByLeaderboardID(s.db, lb.ID)
	if err != nil {
		return err
	}

	record, err := api.deleteLeaderboard(ctx, lb.InternalName)
	s.recordEvent(s.db, it.ID, record)
	if err != nil {
		return err
	}

	if mapping == nil {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("mapping_id = ?", mapping.ID).Delete(&models.LeaderboardEntryLink{}).Error; err != nil {
			return fmt.Errorf("failed to delete entry links: %w", err)
		}
		if err := tx.Delete(mapping).Error; err != nil {
			return fmt.Errorf("failed to delete mapping: %w", err)
		}
		return nil
	})
}

// HandleEntryCreated pushes a freshly written entry to Steam. Entries of
// players without a Steam alias, and entries on unmapped leaderboards, are
// silently skipped.
func (s *Service) HandleEntryCreated(ctx context.Context, it *imodels.Integration, entry *lbmodels.LeaderboardEntry) error {
	mapping, err := findMappingByLeaderboardID(s.db, entry.LeaderboardID)
	if err != nil || mapping == nil {
		return err
	}

	alias, err := s.steamAliasOf(entry.PlayerAliasID)
	if err != nil || alias == nil {
		return err
	}

	api, err := s.apiFor(it)
	if err != nil {
		return err
	}

	record, err := api.setLeaderboardScore(ctx, mapping.SteamworksLeaderboardID, alias.Identifier, int64(entry.Score))
	s.recordEvent(s.db, it.ID, record)
	if err != nil {
		return err
	}
	return upsertEntryLink(s.db, mapping.ID, alias.Identifier, &entry.ID)
}

// HandleEntryVisibilityChanged mirrors a visibility toggle to Steam: hiding
// deletes the remote score, unhiding resubmits it.
func (s *Service) HandleEntryVisibilityChanged(ctx context.Context, it *imodels.Integration, entry *lbmodels.LeaderboardEntry) error {
	mapping, err := findMappingByLeaderboardID(s.db, entry.LeaderboardID)
	if err != nil || mapping == nil {
		return err
	}

	alias, err := s.steamAliasOf(entry.PlayerAliasID)
	if err != nil || alias == nil {
		return err
	}

	api, err := s.apiFor(it)
	if err != nil {
		return err
	}

	if entry.Hidden {
		record, err := api.deleteLeaderboardScore(ctx, mapping.SteamworksLeaderboardID, alias.Identifier)
		s.recordEvent(s.db, it.ID, record)
		return err
	}

	record, err := api.setLeaderboardScore(ctx, mapping.SteamworksLeaderboardID, alias.Identifier, int64(entry.Score))
	s.recordEvent(s.db, it.ID, record)
	if err != nil {
		return err
	}
	return upsertEntryLink(s.db, mapping.ID, alias.Identifier, &entry.ID)
}

// HandleEntryArchived nulls the entry's links. The remote score stays until
// the next CleanupOrphans sweep so archival never blocks on Steam.
func (s *Service) HandleEntryArchived(ctx context.Context, it *imodels.Integration, entry *lbmodels.LeaderboardEntry) error {
	return nullEntryLinks(s.db, entry.ID)
}

// HandleStatUpdated pushes one player's new stat value to Steam. Players
// without a Steam alias are silently skipped.
func (s *Service) HandleStatUpdated(ctx context.Context, it *imodels.Integration, playerStat *statmodels.PlayerGameStat) error {
	stat := playerStat.Stat
	if stat.ID == 0 {
		if err := s.db.First(&stat, playerStat.StatID).Error; err != nil {
			return fmt.Errorf("failed to load stat: %w", err)
		}
	}

	alias, err := s.steamAliasOfPlayer(playerStat.PlayerID)
	if err != nil || alias == nil {
		return err
	}

	api, err := s.apiFor(it)
	if err != nil {
		return err
	}

	record, err := api.setUserStatsForGame(ctx, alias.Identifier, stat.InternalName, playerStat.Value)
	s.recordEvent(s.db, it.ID, record)
	if err != nil {
		return err
	}
	return upsertStatLink(s.db, playerStat.ID, alias.Identifier)
}

// CleanupOrphans deletes the remote scores behind nulled entry links, then
// the links themselves. Each link is handled in isolation so one Steam
// failure does not stall the sweep; a failed link stays for the next run.
func (s *Service) CleanupOrphans(ctx context.Context, it *imodels.Integration) error {
	api, err := s.apiFor(it)
	if err != nil {
		return err
	}

	var links []models.LeaderboardEntryLink
	err = s.db.WithContext(ctx).
		Joins("Mapping").
		Joins("JOIN leaderboards ON leaderboards.id = Mapping.leaderboard_id").
		Where("leaderboard_entry_links.entry_id IS NULL AND leaderboards.game_id = ?", it.GameID).
		Find(&links).Error
	if err != nil {
		return fmt.Errorf("failed to load orphaned links: %w", err)
	}

	for _, link := range links {
		record, err := api.deleteLeaderboardScore(ctx, link.Mapping.SteamworksLeaderboardID, link.SteamUserID)
		s.recordEvent(s.db, it.ID, record)
		if err != nil {
			s.logger.Warn("Failed to delete remote score",
				zap.Int64("steamworks_leaderboard_id", link.Mapping.SteamworksLeaderboardID),
				zap.String("steam_user_id", link.SteamUserID),
				zap.Error(err))
			continue
		}
		if err := s.db.Delete(&link).Error; err != nil {
			return fmt.Errorf("failed to delete entry link: %w", err)
		}
	}

	// Stat links lose their value row when the player is deleted; the rows
	// are dead weight once nulled because Steam has no per-stat delete.
	if err := s.db.Where("player_game_stat_id IS NULL").Delete(&models.StatLink{}).Error; err != nil {
		return fmt.Errorf("failed to prune stat links: %w", err)
	}
	return nil
}

// steamAliasOf resolves the Steam alias behind an entry's alias id. The
// entry alias itself may already be the Steam one; otherwise the player's
// Steam alias, if any, is used.
func (s *Service) steamAliasOf(aliasID uint) (*gamemodels.PlayerAlias, error) {
	var alias gamemodels.PlayerAlias
	if err := s.db.First(&alias, aliasID).Error; err != nil {
		return nil, fmt.Errorf("failed to load alias: %w", err)
	}
	if alias.Service == gamemodels.ServiceSteam {
		return &alias, nil
	}
	return s.steamAliasOfPlayer(alias.PlayerID)
}

// steamAliasOfPlayer returns the player's Steam alias, or (nil, nil).
func (s *Service) steamAliasOfPlayer(playerID string) (*gamemodels.PlayerAlias, error) {
	var alias gamemodels.PlayerAlias
	err := s.db.Where("player_id = ? AND service = ?", playerID, gamemodels.ServiceSteam).First(&alias).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load steam alias: %w", err)
	}
	return &alias, nil
}

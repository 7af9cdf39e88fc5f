package steamworks

import (
	"errors"
	"fmt"

	"game-sync/feature/steamworks/models"

	"gorm.io/gorm"
)

// findMappingByLeaderboardID resolves the mapping for a local leaderboard.
// Returns (nil, nil) when the leaderboard is unmapped.
func findMappingByLeaderboardID(db *gorm.DB, leaderboardID uint) (*models.LeaderboardMapping, error) {
	var mapping models.LeaderboardMapping
	err := db.Where("leaderboard_id = ?", leaderboardID).First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find mapping: %w", err)
	}
	return &mapping, nil
}

// findMappingByRemoteID resolves the mapping for a Steamworks leaderboard id.
// Returns (nil, nil) when the remote leaderboard is unmapped.
func findMappingByRemoteID(db *gorm.DB, remoteID int64) (*models.LeaderboardMapping, error) {
	var mapping models.LeaderboardMapping
	err := db.Where("steamworks_leaderboard_id = ?", remoteID).First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find mapping: %w", err)
	}
	return &mapping, nil
}

// upsertMapping creates the (remote, local) association if it does not
// exist. Idempotent on the natural key: a second call with the same pair is
// a no-op. The created flag reports whether a row was inserted.
func upsertMapping(db *gorm.DB, remoteID int64, leaderboardID uint) (*models.LeaderboardMapping, bool, error) {
	mapping := models.LeaderboardMapping{
		SteamworksLeaderboardID: remoteID,
		LeaderboardID:           leaderboardID,
	}
	result := db.Where(models.LeaderboardMapping{
		SteamworksLeaderboardID: remoteID,
		LeaderboardID:           leaderboardID,
	}).FirstOrCreate(&mapping)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to upsert mapping: %w", result.Error)
	}
	return &mapping, result.RowsAffected > 0, nil
}

// upsertEntryLink points the (mapping, steam user) link at a local entry,
// creating the link row on first contact.
func upsertEntryLink(db *gorm.DB, mappingID uint, steamUserID string, entryID *uint) error {
	var link models.LeaderboardEntryLink
	err := db.Where("mapping_id = ? AND steam_user_id = ?", mappingID, steamUserID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		link = models.LeaderboardEntryLink{MappingID: mappingID, SteamUserID: steamUserID, EntryID: entryID}
		if err := db.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to create entry link: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find entry link: %w", err)
	}

	if err := db.Model(&link).Update("entry_id", entryID).Error; err != nil {
		return fmt.Errorf("failed to update entry link: %w", err)
	}
	return nil
}

// nullEntryLinks detaches all links pointing at a removed local entry. The
// rows stay behind so the cleanup sweep can delete the remote scores.
func nullEntryLinks(db *gorm.DB, entryID uint) error {
	err := db.Model(&models.LeaderboardEntryLink{}).
		Where("entry_id = ?", entryID).
		Update("entry_id", nil).Error
	if err != nil {
		return fmt.Errorf("failed to null entry links: %w", err)
	}
	return nil
}

// upsertStatLink records which Steam user a local player-stat value belongs to.
func upsertStatLink(db *gorm.DB, playerGameStatID uint, steamUserID string) error {
	var link models.StatLink
	err := db.Where("player_game_stat_id = ?", playerGameStatID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		id := playerGameStatID
		link = models.StatLink{PlayerGameStatID: &id, SteamUserID: steamUserID}
		if err := db.Create(&link).Error; err != nil {
			return fmt.Errorf("failed to create stat link: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find stat link: %w", err)
	}

	if link.SteamUserID != steamUserID {
		if err := db.Model(&link).Update("steam_user_id", steamUserID).Error; err != nil {
			return fmt.Errorf("failed to update stat link: %w", err)
		}
	}
	return nil
}

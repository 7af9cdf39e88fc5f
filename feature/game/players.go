package game

import (
	"errors"
	"fmt"

	"game-sync/feature/game/models"

	"gorm.io/gorm"
)

// FindAlias looks up a player alias by service and identifier scoped to one
// game. Returns (nil, nil) when no such alias exists.
func FindAlias(db *gorm.DB, gameID uint, service, identifier string) (*models.PlayerAlias, error) {
	var alias models.PlayerAlias
	err := db.Joins("Player").
		Where("player_aliases.service = ? AND player_aliases.identifier = ? AND Player.game_id = ?", service, identifier, gameID).
		First(&alias).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alias: %w", err)
	}
	return &alias, nil
}

// CreatePlayerWithAlias creates a new player in the game together with its
// alias on the given service.
func CreatePlayerWithAlias(db *gorm.DB, gameID uint, service, identifier string) (*models.PlayerAlias, error) {
	player := models.Player{GameID: gameID}
	if err := db.Create(&player).Error; err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	alias := models.PlayerAlias{
		Service:    service,
		Identifier: identifier,
		PlayerID:   player.ID,
		Player:     player,
	}
	if err := db.Create(&alias).Error; err != nil {
		return nil, fmt.Errorf("failed to create alias: %w", err)
	}
	return &alias, nil
}

// StreamAliases walks all of a game's aliases on one service with keyset
// pagination. The callback returns false to stop early.
func StreamAliases(db *gorm.DB, gameID uint, service string, pageSize int, fn func(alias models.PlayerAlias) (bool, error)) error {
	var cursor uint
	for {
		var batch []models.PlayerAlias
		err := db.Joins("Player").
			Where("player_aliases.service = ? AND Player.game_id = ? AND player_aliases.id > ?", service, gameID, cursor).
			Order("player_aliases.id ASC").
			Limit(pageSize).
			Find(&batch).Error
		if err != nil {
			return fmt.Errorf("failed to stream aliases: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		for _, alias := range batch {
			keepGoing, err := fn(alias)
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

// FindOrCreateAlias resolves the alias for (service, identifier) in a game,
// creating a fresh player and alias when none exists yet.
func FindOrCreateAlias(db *gorm.DB, gameID uint, service, identifier string) (*models.PlayerAlias, error) {
	alias, err := FindAlias(db, gameID, service, identifier)
	if err != nil || alias != nil {
		return alias, err
	}
	return CreatePlayerWithAlias(db, gameID, service, identifier)
}

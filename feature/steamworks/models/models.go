package models

import (
	"time"

	lbmodels "game-sync/feature/leaderboard/models"
)

// LeaderboardMapping associates one local leaderboard with its Steamworks
// counterpart. Both sides are unique: a leaderboard maps to at most one
// remote board and vice versa.
type LeaderboardMapping struct {
	ID                      uint                 `gorm:"primarykey" json:"id"`
	SteamworksLeaderboardID int64                `gorm:"not null;uniqueIndex" json:"steamworks_leaderboard_id"`
	LeaderboardID           uint                 `gorm:"not null;uniqueIndex" json:"leaderboard_id"`
	Leaderboard             lbmodels.Leaderboard `gorm:"foreignKey:LeaderboardID" json:"-"`
	CreatedAt               time.Time            `json:"created_at"`
}

// LeaderboardEntryLink ties a local entry to the Steam user whose score it
// mirrors. EntryID is nulled, not deleted, when the local entry goes away so
// the cleanup sweep can still delete the remote score before removing the
// link row.
type LeaderboardEntryLink struct {
	ID          uint               `gorm:"primarykey" json:"id"`
	MappingID   uint               `gorm:"not null;index;uniqueIndex:idx_entry_links_mapping_steam_user" json:"-"`
	Mapping     LeaderboardMapping `gorm:"foreignKey:MappingID" json:"-"`
	SteamUserID string             `gorm:"size:32;not null;uniqueIndex:idx_entry_links_mapping_steam_user" json:"steam_user_id"`
	EntryID     *uint              `gorm:"index" json:"entry_id"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// StatLink ties a local (stat, player) value to the Steam user it belongs
// to. Nullable for the same lifecycle reason as LeaderboardEntryLink.
type StatLink struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	PlayerGameStatID *uint     `gorm:"uniqueIndex" json:"player_game_stat_id"`
	SteamUserID      string    `gorm:"size:32;not null" json:"steam_user_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

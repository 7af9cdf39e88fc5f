package models

import (
	"time"

	gamemodels "game-sync/feature/game/models"
)

// GameStat is the definition of one numeric stat for a game, with optional
// bounds and a per-player update rate limit.
type GameStat struct {
	ID                    uint            `gorm:"primarykey" json:"id"`
	GameID                uint            `gorm:"not null;uniqueIndex:idx_game_stats_game_internal_name" json:"-"`
	Game                  gamemodels.Game `gorm:"foreignKey:GameID" json:"-"`
	InternalName          string          `gorm:"size:255;not null;uniqueIndex:idx_game_stats_game_internal_name" json:"internal_name"`
	Name                  string          `gorm:"size:255;not null" json:"name"`
	Global                bool            `gorm:"not null;default:false" json:"global"`
	GlobalValue           float64         `gorm:"not null;default:0" json:"global_value"`
	DefaultValue          float64         `gorm:"not null;default:0" json:"default_value"`
	MinValue              *float64        `json:"min_value"`
	MaxValue              *float64        `json:"max_value"`
	MinTimeBetweenUpdates int             `gorm:"not null;default:0" json:"min_time_between_updates"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// Clamp bounds a value to the stat's min/max when they are set.
func (s *GameStat) Clamp(value float64) float64 {
	if s.MinValue != nil && value < *s.MinValue {
		value = *s.MinValue
	}
	if s.MaxValue != nil && value > *s.MaxValue {
		value = *s.MaxValue
	}
	return value
}

// PlayerGameStat is one player's current value for a stat.
type PlayerGameStat struct {
	ID        uint              `gorm:"primarykey" json:"id"`
	PlayerID  string            `gorm:"type:varchar(36);not null;uniqueIndex:idx_player_game_stats_player_stat" json:"-"`
	Player    gamemodels.Player `gorm:"foreignKey:PlayerID" json:"-"`
	StatID    uint              `gorm:"not null;uniqueIndex:idx_player_game_stats_player_stat" json:"-"`
	Stat      GameStat          `gorm:"foreignKey:StatID" json:"stat"`
	Value     float64           `gorm:"not null" json:"value"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

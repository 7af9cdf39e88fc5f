package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Game is the owner of leaderboards, stats, players and integrations.
type Game struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Alias services.
const (
	ServiceUsername = "username"
	ServiceSteam    = "steam"
)

// Player is one person playing one game. The public id is a uuid so it can
// be handed to game clients without leaking row ordering.
type Player struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	GameID    uint      `gorm:"index;not null" json:"-"`
	Game      Game      `gorm:"foreignKey:GameID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Player) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PlayerAlias is one identity of a player on one service, e.g. a Steam user
// id. A player can hold aliases on several services at once.
type PlayerAlias struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Service    string    `gorm:"size:50;not null;uniqueIndex:idx_aliases_service_identifier_player" json:"service"`
	Identifier string    `gorm:"size:255;not null;uniqueIndex:idx_aliases_service_identifier_player" json:"identifier"`
	PlayerID   string    `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_aliases_service_identifier_player" json:"-"`
	Player     Player    `gorm:"foreignKey:PlayerID" json:"player"`
	CreatedAt  time.Time `json:"created_at"`
}

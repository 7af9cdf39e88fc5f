package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	gamemodels "game-sync/feature/game/models"

	"gorm.io/gorm"
)

// Sort modes. Desc means higher scores rank better.
const (
	SortModeAsc  = "asc"
	SortModeDesc = "desc"
)

// Leaderboard is one ranked list of entries for a game. On a unique
// leaderboard each player holds at most one live (visible, non-archived)
// entry; UniqueByProps additionally scopes that uniqueness by the entry's
// prop set.
type Leaderboard struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	GameID        uint             `gorm:"not null;uniqueIndex:idx_leaderboards_game_internal_name" json:"-"`
	Game          gamemodels.Game  `gorm:"foreignKey:GameID" json:"-"`
	InternalName  string           `gorm:"size:255;not null;uniqueIndex:idx_leaderboards_game_internal_name" json:"internal_name"`
	Name          string           `gorm:"size:255;not null" json:"name"`
	SortMode      string           `gorm:"size:4;not null;default:desc" json:"sort_mode"`
	Unique        bool             `gorm:"not null;default:false" json:"unique"`
	UniqueByProps bool             `gorm:"not null;default:false" json:"unique_by_props"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

// Better reports whether a improves on b under this leaderboard's sort mode.
// Equal scores never improve.
func (l *Leaderboard) Better(a, b float64) bool {
	if l.SortMode == SortModeAsc {
		return a < b
	}
	return a > b
}

// Prop is one caller-supplied key/value pair attached to an entry.
type Prop struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PropSet is the full prop collection of an entry, stored as a JSON column.
type PropSet []Prop

// Value implements driver.Valuer.
func (p PropSet) Value() (driver.Value, error) {
	if p == nil {
		p = PropSet{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (p *PropSet) Scan(value any) error {
	if value == nil {
		*p = PropSet{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("cannot scan %T into PropSet", value)
	}
}

// Equal reports whether two prop sets hold the same key/value pairs,
// independent of order.
func (p PropSet) Equal(other PropSet) bool {
	if len(p) != len(other) {
		return false
	}
	pairs := make(map[string]string, len(p))
	for _, prop := range p {
		pairs[prop.Key] = prop.Value
	}
	for _, prop := range other {
		value, ok := pairs[prop.Key]
		if !ok || value != prop.Value {
			return false
		}
	}
	return true
}

// LeaderboardEntry is one score of one player alias on a leaderboard.
// Hidden entries and archived (soft-deleted) entries are excluded from
// ranking and from uniqueness.
type LeaderboardEntry struct {
	ID            uint                   `gorm:"primarykey" json:"id"`
	LeaderboardID uint                   `gorm:"not null;index" json:"-"`
	Leaderboard   Leaderboard            `gorm:"foreignKey:LeaderboardID" json:"-"`
	PlayerAliasID uint                   `gorm:"not null;index" json:"-"`
	PlayerAlias   gamemodels.PlayerAlias `gorm:"foreignKey:PlayerAliasID" json:"player_alias"`
	Score         float64                `gorm:"not null" json:"score"`
	Hidden        bool                   `gorm:"not null;default:false" json:"hidden"`
	Props         PropSet                `gorm:"type:text" json:"props"`
	CreatedAt     time.Time              `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	DeletedAt     gorm.DeletedAt         `gorm:"index" json:"-"`
}

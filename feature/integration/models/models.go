package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	gamemodels "game-sync/feature/game/models"

	"gorm.io/gorm"
)

// Integration types.
const (
	TypeSteamworks = "steamworks"
)

// Config is the per-integration configuration JSON column. The API key is
// stored encrypted; everything else is plain.
type Config struct {
	// APIKey is the AES-GCM encrypted platform credential.
	APIKey string `json:"api_key"`
	// AppID is the platform application id the game maps to.
	AppID int `json:"app_id"`
	// SyncLeaderboards toggles leaderboard reconciliation and the direct
	// leaderboard/entry hooks.
	SyncLeaderboards bool `json:"sync_leaderboards"`
	// SyncStats toggles stat reconciliation and the direct stat hooks.
	SyncStats bool `json:"sync_stats"`
}

// Value implements driver.Valuer.
func (c Config) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (c *Config) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into integration config", value)
	}
}

// Integration is one game's connection to one external platform.
// Soft-deleted integrations stop syncing but keep their audit history.
type Integration struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	GameID    uint            `gorm:"not null;index" json:"-"`
	Game      gamemodels.Game `gorm:"foreignKey:GameID" json:"-"`
	Type      string          `gorm:"size:50;not null" json:"type"`
	Config    Config          `gorm:"type:text;not null" json:"config"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IntegrationEvent is the immutable audit record of one outbound platform
// call: the request verbatim and the response (or synthetic failure) that
// came back.
type IntegrationEvent struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	IntegrationID uint      `gorm:"not null;index" json:"-"`
	RequestMethod string    `gorm:"size:10;not null" json:"request_method"`
	RequestURL    string    `gorm:"size:2048;not null" json:"request_url"`
	RequestBody   string    `gorm:"type:text" json:"request_body"`
	ResponseCode  int       `gorm:"not null" json:"response_code"`
	ResponseBody  string    `gorm:"type:text" json:"response_body"`
	TimeTakenMS   int64     `gorm:"not null" json:"time_taken_ms"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

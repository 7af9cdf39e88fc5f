package models

import "encoding/json"

// Steam sort method names.
const (
	SortMethodAscending  = "Ascending"
	SortMethodDescending = "Descending"
)

// LeaderboardsForGameResponse is the envelope of GetLeaderboardsForGame/v2.
// Leaderboards stays raw so a misconfigured app id (which yields an object
// or null instead of an array) can be detected as a malformed shape.
type LeaderboardsForGameResponse struct {
	Response struct {
		Result       int             `json:"result"`
		Leaderboards json.RawMessage `json:"leaderboards"`
	} `json:"response"`
}

// RemoteLeaderboard is one leaderboard as Steam reports it.
type RemoteLeaderboard struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Entries     int    `json:"entries"`
	SortMethod  string `json:"sortmethod"`
	DisplayType string `json:"displaytype"`
}

// FindOrCreateLeaderboardResponse is the envelope of FindOrCreateLeaderboard/v2.
type FindOrCreateLeaderboardResponse struct {
	Result struct {
		Result      int `json:"result"`
		Leaderboard struct {
			LeaderBoardID          int64  `json:"leaderBoardID"`
			LeaderBoardName        string `json:"leaderBoardName"`
			LeaderBoardSortMethod  string `json:"leaderBoardSortMethod"`
			LeaderBoardDisplayType string `json:"leaderBoardDisplayType"`
			LeaderBoardEntries     int    `json:"leaderBoardEntries"`
		} `json:"leaderboard"`
	} `json:"result"`
}

// LeaderboardEntriesResponse is the envelope of GetLeaderboardEntries/v1.
type LeaderboardEntriesResponse struct {
	LeaderboardEntryInformation struct {
		AppID                      int64                   `json:"appID"`
		LeaderboardID              int64                   `json:"leaderboardID"`
		TotalLeaderBoardEntryCount int                     `json:"totalLeaderBoardEntryCount"`
		LeaderboardEntries         []RemoteLeaderboardEntry `json:"leaderboardEntries"`
	} `json:"leaderboardEntryInformation"`
}

// RemoteLeaderboardEntry is one score row as Steam reports it.
type RemoteLeaderboardEntry struct {
	SteamID string `json:"steamID"`
	Score   int64  `json:"score"`
	Rank    int    `json:"rank"`
}

// GameSchemaResponse is the envelope of GetSchemaForGame/v2. Stats stays raw
// for the same malformed-shape detection as the leaderboard list.
type GameSchemaResponse struct {
	Game struct {
		GameName           string `json:"gameName"`
		AvailableGameStats struct {
			Stats json.RawMessage `json:"stats"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

// RemoteStat is one stat definition from the game schema.
type RemoteStat struct {
	Name         string  `json:"name"`
	DefaultValue float64 `json:"defaultvalue"`
	DisplayName  string  `json:"displayName"`
}

// UserStatsResponse is the envelope of GetUserStatsForGame/v2.
type UserStatsResponse struct {
	PlayerStats struct {
		SteamID  string            `json:"steamID"`
		GameName string            `json:"gameName"`
		Stats    []RemoteStatValue `json:"stats"`
	} `json:"playerstats"`
}

// RemoteStatValue is one player's current value for one stat.
type RemoteStatValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

package steamworks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"game-sync/core/steam"
	lbmodels "game-sync/feature/leaderboard/models"
	"game-sync/feature/steamworks/models"
)

// ErrMalformedResponse means Steam answered with an unexpected shape. This
// indicates a misconfigured application id rather than a transient fault, so
// reconciliation runs treat it as fatal.
var ErrMalformedResponse = errors.New("unexpected response shape from steam")

// api wraps the resilient client with typed Steamworks operations for one
// integration's app id.
type api struct {
	client steam.Client
	appID  int
}

func newAPI(client steam.Client, appID int) *api {
	return &api{client: client, appID: appID}
}

func (a *api) values(pairs ...string) url.Values {
	v := url.Values{"appid": {strconv.Itoa(a.appID)}}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

func rejected(operation string, resp *steam.Response) error {
	return fmt.Errorf("steam rejected %s: status %d", operation, resp.StatusCode)
}

// getLeaderboardsForGame lists all remote leaderboards for the app.
func (a *api) getLeaderboardsForGame(ctx context.Context) ([]models.RemoteLeaderboard, steam.CallRecord, error) {
	resp, record, err := a.client.Get(ctx, "/ISteamLeaderboards/GetLeaderboardsForGame/v2", a.values())
	if err != nil {
		return nil, record, err
	}
	if !resp.OK() {
		return nil, record, rejected("leaderboard list", resp)
	}

	var parsed models.LeaderboardsForGameResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, record, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var boards []models.RemoteLeaderboard
	if parsed.Response.Leaderboards == nil {
		return nil, record, fmt.Errorf("%w: leaderboard collection missing", ErrMalformedResponse)
	}
	if err := json.Unmarshal(parsed.Response.Leaderboards, &boards); err != nil {
		return nil, record, fmt.Errorf("%w: leaderboard collection is not an array", ErrMalformedResponse)
	}
	return boards, record, nil
}

// findOrCreateLeaderboard creates the remote leaderboard if it does not
// exist and returns it either way.
func (a *api) findOrCreateLeaderboard(ctx context.Context, name, sortMode string) (*models.RemoteLeaderboard, steam.CallRecord, error) {
	form := a.values(
		"name", name,
		"sortmethod", steamSortMethod(sortMode),
		"displaytype", "Numeric",
		"createifnotfound", "true",
		"onlytrustedwrites", "true",
	)
	resp, record, err := a.client.Post(ctx, "/ISteamLeaderboards/FindOrCreateLeaderboard/v2", form)
	if err != nil {
		return nil, record, err
	}
	if !resp.OK() {
		return nil, record, rejected("leaderboard creation", resp)
	}

	var parsed models.FindOrCreateLeaderboardResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, record, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	created := parsed.Result.Leaderboard
	if created.LeaderBoardID == 0 {
		return nil, record, fmt.Errorf("%w: leaderboard id missing", ErrMalformedResponse)
	}

	return &models.RemoteLeaderboard{
		ID:         created.LeaderBoardID,
		Name:       created.LeaderBoardName,
		SortMethod: created.LeaderBoardSortMethod,
	}, record, nil
}

// deleteLeaderboard removes the remote leaderboard by name.
func (a *api) deleteLeaderboard(ctx context.Context, name string) (steam.CallRecord, error) {
	resp, record, err := a.client.Post(ctx, "/ISteamLeaderboards/DeleteLeaderboard/v1", a.values("name", name))
	if err != nil {
		return record, err
	}
	if !resp.OK() {
		return record, rejected("leaderboard deletion", resp)
	}
	return record, nil
}

// getLeaderboardEntries pages through remote entries. rangeStart/rangeEnd
// are inclusive rank bounds.
func (a *api) getLeaderboardEntries(ctx context.Context, leaderboardID int64, rangeStart, rangeEnd int) ([]models.RemoteLeaderboardEntry, steam.CallRecord, error) {
	params := a.values(
		"leaderboardid", strconv.FormatInt(leaderboardID, 10),
		"rangestart", strconv.Itoa(rangeStart),
		"rangeend", strconv.Itoa(rangeEnd),
		"datarequest", "RequestGlobal",
	)
	resp, record, err := a.client.Get(ctx, "/ISteamLeaderboards/GetLeaderboardEntries/v1", params)
	if err != nil {
		return nil, record, err
	}
	if !resp.OK() {
		return nil, record, rejected("leaderboard entries", resp)
	}

	var parsed models.LeaderboardEntriesResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, record, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return parsed.LeaderboardEntryInformation.LeaderboardEntries, record, nil
}

// setLeaderboardScore writes one score for one Steam user. ForceUpdate is
// used because the local side already applied its own best-score policy.
func (a *api) setLeaderboardScore(ctx context.Context, leaderboardID int64, steamID string, score int64) (steam.CallRecord, error) {
	form := a.values(
		"leaderboardid", strconv.FormatInt(leaderboardID, 10),
		"steamid", steamID,
		"score", strconv.FormatInt(score, 10),
		"scoremethod", "ForceUpdate",
	)
	resp, record, err := a.client.Post(ctx, "/ISteamLeaderboards/SetLeaderboardScore/v1", form)
	if err != nil {
		return record, err
	}
	if !resp.OK() {
		return record, rejected("score write", resp)
	}
	return record, nil
}

// deleteLeaderboardScore removes one Steam user's score from a remote
// leaderboard.
func (a *api) deleteLeaderboardScore(ctx context.Context, leaderboardID int64, steamID string) (steam.CallRecord, error) {
	form := a.values(
		"leaderboardid", strconv.FormatInt(leaderboardID, 10),
		"steamids", steamID,
	)
	resp, record, err := a.client.Post(ctx, "/ISteamLeaderboards/DeleteLeaderboardScore/v1", form)
	if err != nil {
		return record, err
	}
	if !resp.OK() {
		return record, rejected("score deletion", resp)
	}
	return record, nil
}

// getSchemaForGame fetches the remote stat definitions.
func (a *api) getSchemaForGame(ctx context.Context) ([]models.RemoteStat, steam.CallRecord, error) {
	resp, record, err := a.client.Get(ctx, "/ISteamUserStats/GetSchemaForGame/v2", a.values())
	if err != nil {
		return nil, record, err
	}
	if !resp.OK() {
		return nil, record, rejected("stat schema", resp)
	}

	var parsed models.GameSchemaResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, record, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	stats := parsed.Game.AvailableGameStats.Stats
	if stats == nil {
		return nil, record, fmt.Errorf("%w: stat collection missing", ErrMalformedResponse)
	}
	var defs []models.RemoteStat
	if err := json.Unmarshal(stats, &defs); err != nil {
		return nil, record, fmt.Errorf("%w: stat collection is not an array", ErrMalformedResponse)
	}
	return defs, record, nil
}

// getUserStatsForGame fetches one Steam user's full stat set.
func (a *api) getUserStatsForGame(ctx context.Context, steamID string) ([]models.RemoteStatValue, steam.CallRecord, error) {
	resp, record, err := a.client.Get(ctx, "/ISteamUserStats/GetUserStatsForGame/v2", a.values("steamid", steamID))
	if err != nil {
		return nil, record, err
	}
	if !resp.OK() {
		return nil, record, rejected("player stats", resp)
	}

	var parsed models.UserStatsResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, record, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return parsed.PlayerStats.Stats, record, nil
}

// setUserStatsForGame writes one stat value for one Steam user.
func (a *api) setUserStatsForGame(ctx context.Context, steamID, name string, value float64) (steam.CallRecord, error) {
	form := a.values(
		"steamid", steamID,
		"count", "1",
		"name[0]", name,
		"value[0]", strconv.FormatFloat(value, 'f', -1, 64),
	)
	resp, record, err := a.client.Post(ctx, "/ISteamUserStats/SetUserStatsForGame/v1", form)
	if err != nil {
		return record, err
	}
	if !resp.OK() {
		return record, rejected("stat write", resp)
	}
	return record, nil
}

// steamSortMethod maps a local sort mode onto Steam's naming.
func steamSortMethod(sortMode string) string {
	if sortMode == lbmodels.SortModeAsc {
		return models.SortMethodAscending
	}
	return models.SortMethodDescending
}

// localSortMode maps Steam's sort method onto the local naming.
func localSortMode(sortMethod string) string {
	if sortMethod == models.SortMethodAscending {
		return lbmodels.SortModeAsc
	}
	return lbmodels.SortModeDesc
}

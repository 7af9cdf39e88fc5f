package steamworks_test

import (
	"context"
	"net/url"
	"testing"

	"game-sync/core/database"
	"game-sync/core/steam"
	"game-sync/core/steam/mocks"
	"game-sync/feature/game"
	gamemodels "game-sync/feature/game/models"
	imodels "game-sync/feature/integration/models"
	"game-sync/feature/leaderboard"
	lbmodels "game-sync/feature/leaderboard/models"
	statmodels "game-sync/feature/stat/models"
	"game-sync/feature/steamworks"
	swmodels "game-sync/feature/steamworks/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	leaderboardsPath      = "/ISteamLeaderboards/GetLeaderboardsForGame/v2"
	findOrCreatePath      = "/ISteamLeaderboards/FindOrCreateLeaderboard/v2"
	entriesPath           = "/ISteamLeaderboards/GetLeaderboardEntries/v1"
	setScorePath          = "/ISteamLeaderboards/SetLeaderboardScore/v1"
	deleteScorePath       = "/ISteamLeaderboards/DeleteLeaderboardScore/v1"
	deleteLeaderboardPath = "/ISteamLeaderboards/DeleteLeaderboard/v1"
	schemaPath            = "/ISteamUserStats/GetSchemaForGame/v2"
	userStatsPath         = "/ISteamUserStats/GetUserStatsForGame/v2"
	setUserStatsPath      = "/ISteamUserStats/SetUserStatsForGame/v1"
)

type syncEnv struct {
	db     *gorm.DB
	client *mocks.Client
	svc    *steamworks.Service
	it     *imodels.Integration
}

func newSyncEnv(t *testing.T) *syncEnv {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&gamemodels.Game{}, &gamemodels.Player{}, &gamemodels.PlayerAlias{},
		&lbmodels.Leaderboard{}, &lbmodels.LeaderboardEntry{},
		&statmodels.GameStat{}, &statmodels.PlayerGameStat{},
		&imodels.Integration{}, &imodels.IntegrationEvent{},
		&swmodels.LeaderboardMapping{}, &swmodels.LeaderboardEntryLink{}, &swmodels.StatLink{},
	))

	g := gamemodels.Game{Name: "test game"}
	require.NoError(t, db.Create(&g).Error)

	it := imodels.Integration{
		GameID: g.ID,
		Type:   imodels.TypeSteamworks,
		Config: imodels.Config{APIKey: "sealed", AppID: 480, SyncLeaderboards: true, SyncStats: true},
	}
	require.NoError(t, db.Create(&it).Error)

	client := &mocks.Client{}
	svc := steamworks.NewService(
		db, zap.NewNop(), steam.Config{}, leaderboard.NewService(db, zap.NewNop()),
		func(*imodels.Integration) (string, error) { return "publisher-key", nil },
		func(string) steam.Client { return client },
	)
	return &syncEnv{db: db, client: client, svc: svc, it: &it}
}

func ok(body string) (*steam.Response, steam.CallRecord) {
	return &steam.Response{StatusCode: 200, Body: []byte(body)},
		steam.CallRecord{Method: "GET", URL: "test", StatusCode: 200, ResponseBody: body}
}

func (e *syncEnv) onGet(path, body string) *mock.Call {
	resp, record := ok(body)
	return e.client.On("Get", mock.Anything, path, mock.Anything).Return(resp, record, nil)
}

func (e *syncEnv) onPost(path, body string) *mock.Call {
	resp, record := ok(body)
	return e.client.On("Post", mock.Anything, path, mock.Anything).Return(resp, record, nil)
}

func (e *syncEnv) noRemoteEntries() {
	e.onGet(entriesPath, `{"leaderboardEntryInformation":{"leaderboardEntries":[]}}`)
}

func TestSyncLeaderboardsMatchesByName(t *testing.T) {
	env := newSyncEnv(t)
	lb := lbmodels.Leaderboard{GameID: env.it.GameID, InternalName: "high_scores", Name: "High Scores", SortMode: lbmodels.SortModeAsc}
	require.NoError(t, env.db.Create(&lb).Error)

	env.onGet(leaderboardsPath, `{"response":{"result":1,"leaderboards":[{"id":7,"name":"high_scores","sortmethod":"Descending"}]}}`)
	env.noRemoteEntries()

	report, err := env.svc.SyncLeaderboards(context.Background(), env.it)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.MappingsCreated)
	assert.Equal(t, 1, report.LeaderboardsUpdated)

	// The remote definition wins, and a Steam-mirrored leaderboard is
	// necessarily one-entry-per-user.
	var updated lbmodels.Leaderboard
	require.NoError(t, env.db.First(&updated, lb.ID).Error)
	assert.Equal(t, lbmodels.SortModeDesc, updated.SortMode)
	assert.True(t, updated.Unique)

	var mapping swmodels.LeaderboardMapping
	require.NoError(t, env.db.First(&mapping, "leaderboard_id = ?", lb.ID).Error)
	assert.Equal(t, int64(7), mapping.SteamworksLeaderboardID)

	// A second run converges to a no-op.
	report, err = env.svc.SyncLeaderboards(context.Background(), env.it)
	require.NoError(t, err)
	assert.Equal(t, 0, report.MappingsCreated)

	var count int64
	require.NoError(t, env.db.Model(&swmodels.LeaderboardMapping{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSyncLeaderboardsCreatesLocalFromRemote(t *testing.T) {
	env := newSyncEnv(t)

	env.onGet(leaderboardsPath, `{"response":{"result":1,"leaderboards":[{"id":9,"name":"new_board","sortmethod":"Ascending"}]}}`)
	env.noRemoteEntries()

	report, err := env.svc.SyncLeaderboards(context.Background(), env.it)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.LeaderboardsCreated)

	var lb lbmodels.Leaderboard
	require.NoError(t, env.db.First(&lb, "internal_name = ?", "new_board").Error)
	assert.Equal(t, env.it.GameID, lb.GameID)
	assert.Equal(t, lbmodels.SortModeAsc, lb.SortMode)
	assert.True(t, lb.Unique)
}

func TestSyncLeaderboardsCreatesRemoteFromLocal(t *testing.T) {
	env := newSyncEnv(t)
	lb := lbmodels.Leaderboard{GameID: env.it.GameID, InternalName: "local_only", Name: "Local Only", SortMode: lbmodels.SortModeDesc}
	require.NoError(t, env.db.Create(&lb).Error)

	env.onGet(leaderboardsPath, `{"response":{"result":1,"leaderboards":[]}}`)
	env.onPost(findOrCreatePath, `{"result":{"result":1,"leaderboard":{"leaderBoardID":11,"leaderBoardName":"local_only","leaderBoardSortMethod":"Descending"}}}`)
	env.noRemoteEntries()

	report, err := env.svc.SyncLeaderboards(context.Background(), env.it)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.MappingsCreated)

	var mapping swmodels.LeaderboardMapping
	require.NoError(t, env.db.First(&mapping, "leaderboard_id = ?", lb.ID).Error)
	assert.Equal(t, int64(11), mapping.SteamworksLeaderboardID)

	env.client.AssertCalled(t, "Post", mock.Anything, findOrCreatePath, mock.Anything)
}

func TestSyncLeaderboardsMalformedListIsFatal(t *testing.T) {
	env := newSyncEnv(t)

	// A wrong app id yields an empty object where the array should be.
	env.onGet(leaderboardsPath, `{"response":{"result":1}}`)

	_, err := env.svc.SyncLeaderboards(context.Background(), env.it)
	require.Error(t, err)
	assert.ErrorIs(t, err, steamworks.ErrMalformedResponse)
}

func TestSyncLeaderboardsPullsRemoteEntries(t *testing.T) {
	env := newSyncEnv(t)
	lb := lbmodels.Leaderboard{GameID: env.it.GameID, InternalName: "high_scores", Name: "High Scores", SortMode: lbmodels.SortModeDesc, Unique: true}
	require.NoError(t, env.db.Create(&lb).Error)

	// One known Steam player with a stale local score, one unknown.
	known, err := game.CreatePlayerWithAlias(env.db, env.it.GameID, gamemodels.ServiceSteam, "76561198000000001")
	require.NoError(t, err)
	stale := lbmodels.LeaderboardEntry{LeaderboardID: lb.ID, PlayerAliasID: known.ID, Score: 100}
	require.NoError(t, env.db.Create(&stale).Error)

	env.onGet(leaderboardsPath, `{"response":{"result":1,"leaderboards":[{"id":7,"name":"high_scores","sortmethod":"Descending"}]}}`)
	env.onGet(entriesPath, `{"leaderboardEntryInformation":{"leaderboardEntries":[
		{"steamID":"76561198000000001","score":500,"rank":1},
		{"steamID":"76561198000000002","score":300,"rank":2}
	]}}`)

	report, err := env.svc.SyncLeaderboards(context.Background(), env.it)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 2, report.Pulled)

	// The remote score overwrites the stale local one in place.
	var refreshed lbmodels.LeaderboardEntry
	require.NoError(t, env.db.First(&refreshed, stale.ID).Error)
	assert.Equal(t, float64(500), refreshed.Score)

	// The unknown Steam user got a player, alias and entry.
	created, err := game.FindAlias(env.db, env.it.GameID, gamemodels.ServiceSteam, "76561198000000002")
	require.NoError(t, err)
	require.NotNil(t, created)
	var entry lbmodels.LeaderboardEntry
	require.NoError(t, env.db.First(&entry, "player_alias_id = ?", created.ID).Error)
	assert.Equal(t, float64(300), entry.Score)

	// Everything the pull touched counts as synced: nothing is pushed back.
	env.client.AssertNotCalled(t, "Post", mock.Anything, setScorePath, mock.Anything)
}

func TestSyncLeaderboardsPushesLocalEntries(t *testing.T) {
	env := newSyncEnv(t)
	lb := lbmodels.Leaderboard{GameID: env.it.GameID, InternalName: "high_scores", Name: "High Scores", SortMode: lbmodels.SortModeDesc, Unique: true}
	require.NoError(t, env.db.Create(&lb).Error)

	steamAlias, err := game.CreatePlayerWithAlias(env.db, env.it.GameID, gamemodels.ServiceSteam, "76561198000000001")
	require.NoError(t, err)
	require.NoError(t, env.db.Create(&lbmodels.LeaderboardEntry{LeaderboardID: lb.ID, PlayerAliasID: steamAlias.ID, Score: 250}).Error)

	// Entries of players without a Steam identity cannot be pushed.
	localAlias, err := game.CreatePlayerWithAlias(env.db, env.it.GameID, gamemodels.ServiceUsername, "alice")
	require.NoError(t, err)
	require.NoError(t, env.db.Create(&lbmodels.LeaderboardEntry{LeaderboardID: lb.ID, PlayerAliasID: localAlias.ID, Score: 999}).Error)

	env.onGet(leaderboardsPath, `{"response":{"result":1,"leaderboards":[{"id":7,"name":"high_scores","sortmethod":"Descending"}]}}`)
	env.noRemoteEntries()

	var pushedForms []url.Values
	env.onPost(setScorePath, `{"result":{"result":1}}`).Run(func(args mock.Arguments) {
		pushedForms = append(pushedForms, args.Get(2).(url.Values))
	})

	report, err := env.svc.SyncLeaderboards(context.Background(), env.it)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 1, report.Pushed)

	require.Len(t, pushedForms, 1)
	assert.Equal(t, "76561198000000001", pushedForms[0].Get("steamid"))
	assert.Equal(t, "250", pushedForms[0].Get("score"))
	assert.Equal(t, "7", pushedForms[0].Get("leaderboardid"))

	var link swmodels.LeaderboardEntryLink
	require.NoError(t, env.db.First(&link, "steam_user_id = ?", "76561198000000001").Error)
	require.NotNil(t, link.EntryID)
}

func TestSyncLeaderboardsEntryFailureIsIsolated(t *testing.T) {
	env := newSyncEnv(t)
	lb := lbmodels.Leaderboard{GameID: env.it.GameID, InternalName: "high_scores", Name: "High Scores", SortMode: lbmodels.SortModeDesc, Unique: true}
	require.NoError(t, env.db.Create(&lb).Error)

	for i, id := range []string{"76561198000000001", "76561198000000002", "76561198000000003"} {
		alias, err := game.CreatePlayerWithAlias(env.db, env.it.GameID, gamemodels.ServiceSteam, id)
		require.NoError(t, err)
		require.NoError(t, env.db.Create(&lbmodels.LeaderboardEntry{LeaderboardID: lb.ID, PlayerAliasID: alias.ID, Score: float64(100 * (i + 1))}).Error)
	}

	env.onGet(leaderboardsPath, `{"response":{"result":1,"leaderboards":[{"id":7,"name":"high_scores","sortmethod":"Descending"}]}}`)
	env.noRemoteEntries()

	// The second player's push never gets a response; the others succeed.
	env.client.On("Post", mock.Anything, setScorePath, mock.MatchedBy(func(form url.Values) bool {
		return form.Get("steamid") == "76561198000000002"
	})).Return(nil, steam.CallRecord{Method: "POST", StatusCode: 503}, steam.ErrSteamUnavailable)
	env.onPost(setScorePath, `{"result":{"result":1}}`)

	report, err := env.svc.SyncLeaderboards(context.Background(), env.it)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Pushed)
	require.Len(t, report.Errors, 1)

	// The failed call still left an audit event with the synthetic 503.
	var events []imodels.IntegrationEvent
	require.NoError(t, env.db.Where("response_code = ?", 503).Find(&events).Error)
	assert.Len(t, events, 1)
}

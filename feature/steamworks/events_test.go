package steamworks_test

import (
	"context"
	"net/url"
	"testing"

	"game-sync/core/steam"
	"game-sync/feature/game"
	gamemodels "game-sync/feature/game/models"
	lbmodels "game-sync/feature/leaderboard/models"
	statmodels "game-sync/feature/stat/models"
	swmodels "game-sync/feature/steamworks/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedMappedLeaderboard(t *testing.T, env *syncEnv, remoteID int64) (*lbmodels.Leaderboard, *swmodels.LeaderboardMapping) {
	t.Helper()

	lb := lbmodels.Leaderboard{GameID: env.it.GameID, InternalName: "high_scores", Name: "High Scores", SortMode: lbmodels.SortModeDesc, Unique: true}
	require.NoError(t, env.db.Create(&lb).Error)
	mapping := swmodels.LeaderboardMapping{SteamworksLeaderboardID: remoteID, LeaderboardID: lb.ID}
	require.NoError(t, env.db.Create(&mapping).Error)
	return &lb, &mapping
}

func TestHandleLeaderboardCreated(t *testing.T) {
	env := newSyncEnv(t)
	lb := lbmodels.Leaderboard{GameID: env.it.GameID, InternalName: "fresh", Name: "Fresh", SortMode: lbmodels.SortModeAsc}
	require.NoError(t, env.db.Create(&lb).Error)

	env.onPost(findOrCreatePath, `{"result":{"result":1,"leaderboard":{"leaderBoardID":21,"leaderBoardName":"fresh","leaderBoardSortMethod":"Ascending"}}}`)

	require.NoError(t, env.svc.HandleLeaderboardCreated(context.Background(), env.it, &lb))

	var mapping swmodels.LeaderboardMapping
	require.NoError(t, env.db.First(&mapping, "leaderboard_id = ?", lb.ID).Error)
	assert.Equal(t, int64(21), mapping.SteamworksLeaderboardID)
}

func TestHandleLeaderboardDeleted(t *testing.T) {
	env := newSyncEnv(t)
	lb, mapping := seedMappedLeaderboard(t, env, 7)
	require.NoError(t, env.db.Create(&swmodels.LeaderboardEntryLink{MappingID: mapping.ID, SteamUserID: "76561198000000001"}).Error)

	var deletedForm url.Values
	env.onPost(deleteLeaderboardPath, `{"result":{"result":1}}`).Run(func(args mock.Arguments) {
		deletedForm = args.Get(2).(url.Values)
	})

	require.NoError(t, env.svc.HandleLeaderboardDeleted(context.Background(), env.it, lb))
	assert.Equal(t, "high_scores", deletedForm.Get("name"))

	var mappings, links int64
	require.NoError(t, env.db.Model(&swmodels.LeaderboardMapping{}).Count(&mappings).Error)
	require.NoError(t, env.db.Model(&swmodels.LeaderboardEntryLink{}).Count(&links).Error)
	assert.Equal(t, int64(0), mappings)
	assert.Equal(t, int64(0), links)
}

func TestHandleEntryCreatedPushesScore(t *testing.T) {
	env := newSyncEnv(t)
	lb, _ := seedMappedLeaderboard(t, env, 7)

	alias, err := game.CreatePlayerWithAlias(env.db, env.it.GameID, gamemodels.ServiceSteam, "76561198000000001")
	require.NoError(t, err)
	entry := lbmodels.LeaderboardEntry{LeaderboardID: lb.ID, PlayerAliasID: alias.ID, Score: 150}
	require.NoError(t, env.db.Create(&entry).Error)

	var form url.Values
	env.onPost(setScorePath, `{"result":{"result":1}}`).Run(func(args mock.Arguments) {
		form = args.Get(2).(url.Values)
	})

	require.NoError(t, env.svc.HandleEntryCreated(context.Background(), env.it, &entry))
	assert.Equal(t, "150", form.Get("score"))
	assert.Equal(t, "76561198000000001", form.Get("steamid"))

	var link swmodels.LeaderboardEntryLink
	require.NoError(t, env.db.First(&link, "steam_user_id = ?", "76561198000000001").Error)
	require.NotNil(t, link.EntryID)
	assert.Equal(t, entry.ID, *link.EntryID)
}

func TestHandleEntryCreatedSkipsNonSteamPlayers(t *testing.T) {
	env := newSyncEnv(t)
	lb, _ := seedMappedLeaderboard(t, env, 7)

	alias, err := game.CreatePlayerWithAlias(env.db, env.it.GameID, gamemodels.ServiceUsername, "alice")
	require.NoError(t, err)
	entry := lbmodels.LeaderboardEntry{LeaderboardID: lb.ID, PlayerAliasID: alias.ID, Score: 150}
	require.NoError(t, env.db.Create(&entry).Error)

	require.NoError(t, env.svc.HandleEntryCreated(context.Background(), env.it, &entry))
	env.client.AssertNotCalled(t, "Post", mock.Anything, setScorePath, mock.Anything)
}

func TestHandleEntryVisibilityChanged(t *testing.T) {
	env := newSyncEnv(t)
	lb, mapping := seedMappedLeaderboard(t, env, 7)

	alias, err := game.CreatePlayerWithAlias(env.db, env.it.GameID, gamemodels.ServiceSteam, "76561198000000001")
	require.NoError(t, err)
	entry := lbmodels.LeaderboardEntry{LeaderboardID: lb.ID, PlayerAliasID: alias.ID, Score: 150, Hidden: true}
	require.NoError(t, env.db.Create(&entry).Error)
	require.NoError(t, env.db.Create(&swmodels.LeaderboardEntryLink{MappingID: mapping.ID, SteamUserID: alias.Identifier, EntryID: &entry.ID}).Error)

	// Hiding deletes the remote score.
	env.onPost(deleteScorePath, `{"result":{"result":1}}`)
	require.NoError(t, env.svc.HandleEntryVisibilityChanged(context.Background(), env.it, &entry))
	env.client.AssertCalled(t, "Post", mock.Anything, deleteScorePath, mock.Anything)

	// Unhiding resubmits it.
	entry.Hidden = false
	env.onPost(setScorePath, `{"result":{"result":1}}`)
	require.NoError(t, env.svc.HandleEntryVisibilityChanged(context.Background(), env.it, &entry))
	env.client.AssertCalled(t, "Post", mock.Anything, setScorePath, mock.Anything)
}

func TestHandleEntryArchivedNullsLink(t *testing.T) {
	env := newSyncEnv(t)
	lb, mapping := seedMappedLeaderboard(t, env, 7)

	alias, err := game.CreatePlayerWithAlias(env.db, env.it.GameID, gamemodels.ServiceSteam, "76561198000000001")
	require.NoError(t, err)
	entry := lbmodels.LeaderboardEntry{LeaderboardID: lb.ID, PlayerAliasID: alias.ID, Score: 150}
	require.NoError(t, env.db.Create(&entry).Error)
	require.NoError(t, env.db.Create(&swmodels.LeaderboardEntryLink{MappingID: mapping.ID, SteamUserID: alias.Identifier, EntryID: &entry.ID}).Error)

	require.NoError(t, env.svc.HandleEntryArchived(context.Background(), env.it, &entry))

	// No remote call happens at archival time; the link just loses its entry.
	env.client.AssertNotCalled(t, "Post", mock.Anything, deleteScorePath, mock.Anything)

	var link swmodels.LeaderboardEntryLink
	require.NoError(t, env.db.First(&link, "steam_user_id = ?", alias.Identifier).Error)
	assert.Nil(t, link.EntryID)
}

func TestHandleStatUpdated(t *testing.T) {
	env := newSyncEnv(t)
	stat := statmodels.GameStat{GameID: env.it.GameID, InternalName: "kills", Name: "Kills"}
	require.NoError(t, env.db.Create(&stat).Error)

	alias, err := game.CreatePlayerWithAlias(env.db, env.it.GameID, gamemodels.ServiceSteam, "76561198000000001")
	require.NoError(t, err)
	value := statmodels.PlayerGameStat{PlayerID: alias.PlayerID, StatID: stat.ID, Value: 12}
	require.NoError(t, env.db.Create(&value).Error)

	var form url.Values
	env.onPost(setUserStatsPath, `{"result":{"result":1}}`).Run(func(args mock.Arguments) {
		form = args.Get(2).(url.Values)
	})

	require.NoError(t, env.svc.HandleStatUpdated(context.Background(), env.it, &value))
	assert.Equal(t, "kills", form.Get("name[0]"))
	assert.Equal(t, "12", form.Get("value[0]"))

	var link swmodels.StatLink
	require.NoError(t, env.db.First(&link, "steam_user_id = ?", alias.Identifier).Error)
	require.NotNil(t, link.PlayerGameStatID)
}

func TestCleanupOrphans(t *testing.T) {
	env := newSyncEnv(t)
	_, mapping := seedMappedLeaderboard(t, env, 7)

	// One orphaned link (archived entry already gone) and one live link.
	require.NoError(t, env.db.Create(&swmodels.LeaderboardEntryLink{MappingID: mapping.ID, SteamUserID: "76561198000000001"}).Error)
	liveID := uint(42)
	require.NoError(t, env.db.Create(&swmodels.LeaderboardEntryLink{MappingID: mapping.ID, SteamUserID: "76561198000000002", EntryID: &liveID}).Error)

	var form url.Values
	env.onPost(deleteScorePath, `{"result":{"result":1}}`).Run(func(args mock.Arguments) {
		form = args.Get(2).(url.Values)
	})

	require.NoError(t, env.svc.CleanupOrphans(context.Background(), env.it))
	assert.Equal(t, "76561198000000001", form.Get("steamids"))
	assert.Equal(t, "7", form.Get("leaderboardid"))

	// Only the orphaned link is gone.
	var remaining []swmodels.LeaderboardEntryLink
	require.NoError(t, env.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "76561198000000002", remaining[0].SteamUserID)
}

func TestCleanupOrphansKeepsFailedLinks(t *testing.T) {
	env := newSyncEnv(t)
	_, mapping := seedMappedLeaderboard(t, env, 7)
	require.NoError(t, env.db.Create(&swmodels.LeaderboardEntryLink{MappingID: mapping.ID, SteamUserID: "76561198000000001"}).Error)

	env.client.On("Post", mock.Anything, deleteScorePath, mock.Anything).
		Return(nil, steam.CallRecord{Method: "POST", StatusCode: 503}, steam.ErrSteamUnavailable)

	require.NoError(t, env.svc.CleanupOrphans(context.Background(), env.it))

	// The remote delete never happened, so the link stays for the next sweep.
	var count int64
	require.NoError(t, env.db.Model(&swmodels.LeaderboardEntryLink{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

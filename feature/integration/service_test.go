package integration_test

import (
	"context"
	"testing"

	"game-sync/core/crypto"
	"game-sync/core/database"
	"game-sync/core/reconcile"
	"game-sync/core/steam"
	"game-sync/feature/integration"
	"game-sync/feature/integration/mocks"
	"game-sync/feature/integration/models"
	lbmodels "game-sync/feature/leaderboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testCryptoKey = "integration-test-master-key"

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Integration{}, &models.IntegrationEvent{}))
	return db
}

func TestCreateEncryptsCredential(t *testing.T) {
	db := newServiceDB(t)
	svc := integration.NewService(db, zap.NewNop(), testCryptoKey)

	created, err := svc.Create(context.Background(), 1, models.TypeSteamworks, "publisher-key", models.Config{AppID: 480})
	require.NoError(t, err)

	// The stored credential is ciphertext, but round-trips.
	var stored models.Integration
	require.NoError(t, db.First(&stored, created.ID).Error)
	assert.NotEqual(t, "publisher-key", stored.Config.APIKey)

	plain, err := svc.DecryptAPIKey(&stored)
	require.NoError(t, err)
	assert.Equal(t, "publisher-key", plain)

	// And it is real AES-GCM output, not an encoding.
	_, err = crypto.Decrypt(stored.Config.APIKey, "wrong-master-key")
	assert.Error(t, err)
}

func TestGetReturnsNotFound(t *testing.T) {
	db := newServiceDB(t)
	svc := integration.NewService(db, zap.NewNop(), testCryptoKey)

	_, err := svc.Get(context.Background(), 1, models.TypeSteamworks)
	assert.ErrorIs(t, err, integration.ErrIntegrationNotFound)
}

func TestGetIgnoresDeletedIntegrations(t *testing.T) {
	db := newServiceDB(t)
	svc := integration.NewService(db, zap.NewNop(), testCryptoKey)

	created, err := svc.Create(context.Background(), 1, models.TypeSteamworks, "key", models.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Delete(created).Error)

	_, err = svc.Get(context.Background(), 1, models.TypeSteamworks)
	assert.ErrorIs(t, err, integration.ErrIntegrationNotFound)
}

func TestRecordEvent(t *testing.T) {
	db := newServiceDB(t)

	record := steam.CallRecord{
		Method:       "POST",
		URL:          "https://partner.steam-api.com/ISteamLeaderboards/SetLeaderboardScore/v1",
		Body:         "appid=480&score=100",
		StatusCode:   200,
		ResponseBody: `{"result":{"result":1}}`,
	}
	require.NoError(t, integration.RecordEvent(db, 3, record))

	var event models.IntegrationEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, uint(3), event.IntegrationID)
	assert.Equal(t, "POST", event.RequestMethod)
	assert.Equal(t, "appid=480&score=100", event.RequestBody)
	assert.Equal(t, 200, event.ResponseCode)
}

func TestSyncHonorsToggles(t *testing.T) {
	db := newServiceDB(t)
	svc := integration.NewService(db, zap.NewNop(), testCryptoKey)

	platform := &mocks.Platform{}
	svc.Register(models.TypeSteamworks, platform)

	it := &models.Integration{
		Type:   models.TypeSteamworks,
		Config: models.Config{SyncLeaderboards: false, SyncStats: true},
	}

	// Disabled leaderboard sync returns without touching the platform.
	report, err := svc.SyncLeaderboards(context.Background(), it)
	require.NoError(t, err)
	assert.Nil(t, report)
	platform.AssertNotCalled(t, "SyncLeaderboards", mock.Anything, mock.Anything)

	platform.On("SyncStats", mock.Anything, it).Return(reconcile.NewReport(), nil)
	report, err = svc.SyncStats(context.Background(), it)
	require.NoError(t, err)
	assert.NotNil(t, report)
}

func TestDispatchSwallowsPlatformErrors(t *testing.T) {
	db := newServiceDB(t)
	svc := integration.NewService(db, zap.NewNop(), testCryptoKey)

	platform := &mocks.Platform{}
	svc.Register(models.TypeSteamworks, platform)

	_, err := svc.Create(context.Background(), 1, models.TypeSteamworks, "key", models.Config{SyncLeaderboards: true})
	require.NoError(t, err)

	entry := &lbmodels.LeaderboardEntry{ID: 1, Score: 100}
	platform.On("HandleEntryCreated", mock.Anything, mock.Anything, entry).Return(assert.AnError)

	// A platform failure must never propagate into gameplay traffic.
	svc.EntryCreated(context.Background(), 1, entry)
	platform.AssertCalled(t, "HandleEntryCreated", mock.Anything, mock.Anything, entry)
}

func TestDispatchSkipsDisabledIntegrations(t *testing.T) {
	db := newServiceDB(t)
	svc := integration.NewService(db, zap.NewNop(), testCryptoKey)

	platform := &mocks.Platform{}
	svc.Register(models.TypeSteamworks, platform)

	_, err := svc.Create(context.Background(), 1, models.TypeSteamworks, "key", models.Config{SyncLeaderboards: false})
	require.NoError(t, err)

	svc.EntryCreated(context.Background(), 1, &lbmodels.LeaderboardEntry{ID: 1})
	platform.AssertNotCalled(t, "HandleEntryCreated", mock.Anything, mock.Anything, mock.Anything)
}

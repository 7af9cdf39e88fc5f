package leaderboard_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"game-sync/feature/integration"
	"game-sync/feature/leaderboard"
	"game-sync/feature/leaderboard/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	app := fiber.New()
	db := newTestDB(t)
	integrations := integration.NewService(db, zap.NewNop(), "handler-test-master-key")
	feature := leaderboard.NewFeature(db, zap.NewNop(), integrations)
	require.NoError(t, feature.Load(app))
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func TestHandleCreateLeaderboard(t *testing.T) {
	app, db := setupTestApp(t)

	status, body := doJSON(t, app, "POST", "/leaderboards", fiber.Map{
		"game_id":       1,
		"internal_name": "high_scores",
		"name":          "High Scores",
		"sort_mode":     "desc",
		"unique":        true,
	})

	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "high_scores", body["internal_name"])

	var count int64
	require.NoError(t, db.Model(&models.Leaderboard{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHandleCreateLeaderboardRejectsMissingFields(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _ := doJSON(t, app, "POST", "/leaderboards", fiber.Map{"name": "No Game"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleSubmitEntryCreatesPlayer(t *testing.T) {
	app, db := setupTestApp(t)
	seedLeaderboard(t, db, models.Leaderboard{
		GameID: 1, InternalName: "high_scores", Name: "High Scores",
		SortMode: models.SortModeDesc, Unique: true,
	})

	status, body := doJSON(t, app, "POST", "/leaderboards/high_scores/entries", fiber.Map{
		"game_id":    1,
		"identifier": "alice",
		"score":      100,
	})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["created"])
	assert.Equal(t, float64(0), body["position"])

	var entries int64
	require.NoError(t, db.Model(&models.LeaderboardEntry{}).Count(&entries).Error)
	assert.Equal(t, int64(1), entries)
}

func TestHandleSubmitEntryUnknownLeaderboard(t *testing.T) {
	app, _ := setupTestApp(t)

	status, _ := doJSON(t, app, "POST", "/leaderboards/missing/entries", fiber.Map{
		"game_id":    1,
		"identifier": "alice",
		"score":      100,
	})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHandleGetEntriesReturnsRankedPage(t *testing.T) {
	app, db := setupTestApp(t)
	seedLeaderboard(t, db, models.Leaderboard{
		GameID: 1, InternalName: "high_scores", Name: "High Scores",
		SortMode: models.SortModeDesc, Unique: true,
	})
	for i, score := range []float64{50, 300, 200} {
		_, _ = doJSON(t, app, "POST", "/leaderboards/high_scores/entries", fiber.Map{
			"game_id":    1,
			"identifier": fmt.Sprintf("player-%d", i),
			"score":      score,
		})
	}

	req := httptest.NewRequest("GET", "/leaderboards/high_scores/entries?game_id=1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var entries []models.LeaderboardEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 3)
	assert.Equal(t, float64(300), entries[0].Score)
	assert.Equal(t, float64(50), entries[2].Score)
}

func TestHandleDeleteLeaderboard(t *testing.T) {
	app, db := setupTestApp(t)
	seedLeaderboard(t, db, models.Leaderboard{
		GameID: 1, InternalName: "high_scores", Name: "High Scores",
		SortMode: models.SortModeDesc,
	})

	req := httptest.NewRequest("DELETE", "/leaderboards/high_scores?game_id=1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Leaderboard{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

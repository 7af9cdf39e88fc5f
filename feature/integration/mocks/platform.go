package mocks

import (
	"context"

	"game-sync/core/reconcile"
	"game-sync/feature/integration/models"
	lbmodels "game-sync/feature/leaderboard/models"
	statmodels "game-sync/feature/stat/models"

	"github.com/stretchr/testify/mock"
)

// Platform is a mock implementation of integration.Platform
type Platform struct {
	mock.Mock
}

func (m *Platform) SyncLeaderboards(ctx context.Context, integration *models.Integration) (*reconcile.Report, error) {
	args := m.Called(ctx, integration)
	var report *reconcile.Report
	if r, ok := args.Get(0).(*reconcile.Report); ok {
		report = r
	}
	return report, args.Error(1)
}

func (m *Platform) SyncStats(ctx context.Context, integration *models.Integration) (*reconcile.Report, error) {
	args := m.Called(ctx, integration)
	var report *reconcile.Report
	if r, ok := args.Get(0).(*reconcile.Report); ok {
		report = r
	}
	return report, args.Error(1)
}

func (m *Platform) HandleLeaderboardCreated(ctx context.Context, integration *models.Integration, lb *lbmodels.Leaderboard) error {
	return m.Called(ctx, integration, lb).Error(0)
}

func (m *Platform) HandleLeaderboardDeleted(ctx context.Context, integration *models.Integration, lb *lbmodels.Leaderboard) error {
	return m.Called(ctx, integration, lb).Error(0)
}

func (m *Platform) HandleEntryCreated(ctx context.Context, integration *models.Integration, entry *lbmodels.LeaderboardEntry) error {
	return m.Called(ctx, integration, entry).Error(0)
}

func (m *Platform) HandleEntryVisibilityChanged(ctx context.Context, integration *models.Integration, entry *lbmodels.LeaderboardEntry) error {
	return m.Called(ctx, integration, entry).Error(0)
}

func (m *Platform) HandleEntryArchived(ctx context.Context, integration *models.Integration, entry *lbmodels.LeaderboardEntry) error {
	return m.Called(ctx, integration, entry).Error(0)
}

func (m *Platform) HandleStatUpdated(ctx context.Context, integration *models.Integration, playerStat *statmodels.PlayerGameStat) error {
	return m.Called(ctx, integration, playerStat).Error(0)
}

func (m *Platform) CleanupOrphans(ctx context.Context, integration *models.Integration) error {
	return m.Called(ctx, integration).Error(0)
}

package integration

import (
	"context"

	"game-sync/core/reconcile"
	"game-sync/feature/integration/models"
	lbmodels "game-sync/feature/leaderboard/models"
	statmodels "game-sync/feature/stat/models"
)

// Platform is one supported external platform. Implementations are selected
// from the registry by the integration's type, so adding a platform means
// adding one implementation and one Register call.
type Platform interface {
	// SyncLeaderboards runs a full bidirectional leaderboard reconciliation.
	SyncLeaderboards(ctx context.Context, integration *models.Integration) (*reconcile.Report, error)
	// SyncStats runs a full bidirectional stat reconciliation.
	SyncStats(ctx context.Context, integration *models.Integration) (*reconcile.Report, error)

	// Direct sync-on-write hooks, invoked by gameplay traffic.
	HandleLeaderboardCreated(ctx context.Context, integration *models.Integration, lb *lbmodels.Leaderboard) error
	HandleLeaderboardDeleted(ctx context.Context, integration *models.Integration, lb *lbmodels.Leaderboard) error
	HandleEntryCreated(ctx context.Context, integration *models.Integration, entry *lbmodels.LeaderboardEntry) error
	HandleEntryVisibilityChanged(ctx context.Context, integration *models.Integration, entry *lbmodels.LeaderboardEntry) error
	HandleEntryArchived(ctx context.Context, integration *models.Integration, entry *lbmodels.LeaderboardEntry) error
	HandleStatUpdated(ctx context.Context, integration *models.Integration, playerStat *statmodels.PlayerGameStat) error

	// CleanupOrphans deletes remote scores whose local entries are gone.
	CleanupOrphans(ctx context.Context, integration *models.Integration) error
}

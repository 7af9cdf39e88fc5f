package integration

import (
	"context"
	"errors"
	"fmt"

	"game-sync/core/crypto"
	"game-sync/core/reconcile"
	"game-sync/core/steam"
	"game-sync/feature/integration/models"
	lbmodels "game-sync/feature/leaderboard/models"
	statmodels "game-sync/feature/stat/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrIntegrationNotFound is returned when a game has no live integration of
// the requested type.
var ErrIntegrationNotFound = errors.New("integration not found")

// Service owns integration records and fans sync triggers out to the
// registered platform implementations.
type Service struct {
	db        *gorm.DB
	logger    *zap.Logger
	cryptoKey string
	platforms map[string]Platform
}

// NewService creates an integration service.
func NewService(db *gorm.DB, logger *zap.Logger, cryptoKey string) *Service {
	return &Service{
		db:        db,
		logger:    logger,
		cryptoKey: cryptoKey,
		platforms: make(map[string]Platform),
	}
}

// Register adds a platform implementation for an integration type.
func (s *Service) Register(integrationType string, platform Platform) {
	s.platforms[integrationType] = platform
}

// Platform resolves the implementation for an integration.
func (s *Service) Platform(integration *models.Integration) (Platform, bool) {
	p, ok := s.platforms[integration.Type]
	return p, ok
}

// Get resolves a game's live integration of the given type.
func (s *Service) Get(ctx context.Context, gameID uint, integrationType string) (*models.Integration, error) {
	var integration models.Integration
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND type = ?", gameID, integrationType).
		First(&integration).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIntegrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load integration: %w", err)
	}
	return &integration, nil
}

// ForGame returns all live integrations of a game.
func (s *Service) ForGame(ctx context.Context, gameID uint) ([]models.Integration, error) {
	var integrations []models.Integration
	if err := s.db.WithContext(ctx).Where("game_id = ?", gameID).Find(&integrations).Error; err != nil {
		return nil, fmt.Errorf("failed to load integrations: %w", err)
	}
	return integrations, nil
}

// All returns every live integration across all games.
func (s *Service) All(ctx context.Context) ([]models.Integration, error) {
	var integrations []models.Integration
	if err := s.db.WithContext(ctx).Find(&integrations).Error; err != nil {
		return nil, fmt.Errorf("failed to load integrations: %w", err)
	}
	return integrations, nil
}

// Create stores a new integration, encrypting the credential at rest.
func (s *Service) Create(ctx context.Context, gameID uint, integrationType, apiKey string, cfg models.Config) (*models.Integration, error) {
	encrypted, err := crypto.Encrypt(apiKey, s.cryptoKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credential: %w", err)
	}
	cfg.APIKey = encrypted

	integration := models.Integration{GameID: gameID, Type: integrationType, Config: cfg}
	if err := s.db.WithContext(ctx).Create(&integration).Error; err != nil {
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}
	return &integration, nil
}

// DecryptAPIKey recovers the plaintext platform credential.
func (s *Service) DecryptAPIKey(integration *models.Integration) (string, error) {
	return crypto.Decrypt(integration.Config.APIKey, s.cryptoKey)
}

// RecordEvent persists one outbound call as an audit event. When a tx is in
// flight the event commits atomically with the resulting local mutation.
func RecordEvent(tx *gorm.DB, integrationID uint, record steam.CallRecord) error {
	event := models.IntegrationEvent{
		IntegrationID: integrationID,
		RequestMethod: record.Method,
		RequestURL:    record.URL,
		RequestBody:   record.Body,
		ResponseCode:  record.StatusCode,
		ResponseBody:  record.ResponseBody,
		TimeTakenMS:   record.Elapsed.Milliseconds(),
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("failed to record integration event: %w", err)
	}
	return nil
}

// SyncLeaderboards runs leaderboard reconciliation for one integration,
// honoring its feature toggle.
func (s *Service) SyncLeaderboards(ctx context.Context, integration *models.Integration) (*reconcile.Report, error) {
	if !integration.Config.SyncLeaderboards {
		return nil, nil
	}
	platform, ok := s.Platform(integration)
	if !ok {
		return nil, fmt.Errorf("no platform registered for type %s", integration.Type)
	}
	return platform.SyncLeaderboards(ctx, integration)
}

// SyncStats runs stat reconciliation for one integration, honoring its
// feature toggle.
func (s *Service) SyncStats(ctx context.Context, integration *models.Integration) (*reconcile.Report, error) {
	if !integration.Config.SyncStats {
		return nil, nil
	}
	platform, ok := s.Platform(integration)
	if !ok {
		return nil, fmt.Errorf("no platform registered for type %s", integration.Type)
	}
	return platform.SyncStats(ctx, integration)
}

// SyncAll runs a full sync for every live integration. One integration's
// failure is logged and does not block the others; this backs the scheduled
// periodic sync.
func (s *Service) SyncAll(ctx context.Context) error {
	integrations, err := s.All(ctx)
	if err != nil {
		return err
	}

	for i := range integrations {
		integration := &integrations[i]
		l := s.logger.With(zap.Uint("integration_id", integration.ID), zap.String("type", integration.Type))

		if report, err := s.SyncLeaderboards(ctx, integration); err != nil {
			l.Error("Leaderboard sync failed", zap.Error(err))
		} else if report != nil {
			l.Info("Leaderboard sync completed",
				zap.Int("pulled", report.Pulled),
				zap.Int("pushed", report.Pushed),
				zap.Int("errors", len(report.Errors)),
				zap.String("execution_time", report.ExecutionTime))
		}

		if report, err := s.SyncStats(ctx, integration); err != nil {
			l.Error("Stat sync failed", zap.Error(err))
		} else if report != nil {
			l.Info("Stat sync completed",
				zap.Int("pulled", report.Pulled),
				zap.Int("pushed", report.Pushed),
				zap.Int("errors", len(report.Errors)),
				zap.String("execution_time", report.ExecutionTime))
		}
	}
	return nil
}

// CleanupAll runs the orphan remote-score sweep for every live integration.
func (s *Service) CleanupAll(ctx context.Context) error {
	integrations, err := s.All(ctx)
	if err != nil {
		return err
	}
	for i := range integrations {
		integration := &integrations[i]
		platform, ok := s.Platform(integration)
		if !ok {
			continue
		}
		if err := platform.CleanupOrphans(ctx, integration); err != nil {
			s.logger.Error("Orphan cleanup failed", zap.Uint("integration_id", integration.ID), zap.Error(err))
		}
	}
	return nil
}

// Dispatch hooks. Gameplay traffic must never fail because a platform call
// failed, so hook errors are logged and swallowed here.

func (s *Service) dispatch(ctx context.Context, gameID uint, what string, leaderboards bool, fn func(platform Platform, integration *models.Integration) error) {
	integrations, err := s.ForGame(ctx, gameID)
	if err != nil {
		s.logger.Error("Failed to load integrations for dispatch", zap.Uint("game_id", gameID), zap.Error(err))
		return
	}

	for i := range integrations {
		integration := &integrations[i]
		if leaderboards && !integration.Config.SyncLeaderboards {
			continue
		}
		if !leaderboards && !integration.Config.SyncStats {
			continue
		}
		platform, ok := s.Platform(integration)
		if !ok {
			continue
		}
		if err := fn(platform, integration); err != nil {
			s.logger.Error("Integration dispatch failed",
				zap.String("hook", what),
				zap.Uint("integration_id", integration.ID),
				zap.Error(err))
		}
	}
}

// LeaderboardCreated notifies all platforms that a local leaderboard exists.
func (s *Service) LeaderboardCreated(ctx context.Context, gameID uint, lb *lbmodels.Leaderboard) {
	s.dispatch(ctx, gameID, "leaderboard created", true, func(p Platform, i *models.Integration) error {
		return p.HandleLeaderboardCreated(ctx, i, lb)
	})
}

// LeaderboardDeleted notifies all platforms that a local leaderboard is gone.
func (s *Service) LeaderboardDeleted(ctx context.Context, gameID uint, lb *lbmodels.Leaderboard) {
	s.dispatch(ctx, gameID, "leaderboard deleted", true, func(p Platform, i *models.Integration) error {
		return p.HandleLeaderboardDeleted(ctx, i, lb)
	})
}

// EntryCreated pushes a freshly written entry to all platforms.
func (s *Service) EntryCreated(ctx context.Context, gameID uint, entry *lbmodels.LeaderboardEntry) {
	s.dispatch(ctx, gameID, "entry created", true, func(p Platform, i *models.Integration) error {
		return p.HandleEntryCreated(ctx, i, entry)
	})
}

// EntryVisibilityChanged mirrors a visibility toggle to all platforms.
func (s *Service) EntryVisibilityChanged(ctx context.Context, gameID uint, entry *lbmodels.LeaderboardEntry) {
	s.dispatch(ctx, gameID, "entry visibility changed", true, func(p Platform, i *models.Integration) error {
		return p.HandleEntryVisibilityChanged(ctx, i, entry)
	})
}

// EntryArchived nulls the remote link of an archived entry so the sweep can
// delete the remote score later.
func (s *Service) EntryArchived(ctx context.Context, gameID uint, entry *lbmodels.LeaderboardEntry) {
	s.dispatch(ctx, gameID, "entry archived", true, func(p Platform, i *models.Integration) error {
		return p.HandleEntryArchived(ctx, i, entry)
	})
}

// StatUpdated pushes a stat value change to all platforms.
func (s *Service) StatUpdated(ctx context.Context, gameID uint, playerStat *statmodels.PlayerGameStat) {
	s.dispatch(ctx, gameID, "stat updated", false, func(p Platform, i *models.Integration) error {
		return p.HandleStatUpdated(ctx, i, playerStat)
	})
}

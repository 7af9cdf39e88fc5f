package steamworks

import (
	"game-sync/core/steam"
	"game-sync/feature/integration"
	imodels "game-sync/feature/integration/models"
	"game-sync/feature/leaderboard"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Page sizes for the pull and push passes. Both passes stream; neither ever
// materializes a whole leaderboard.
const (
	pullPageSize = 100
	pushPageSize = 50
)

// CredentialDecryptor recovers the plaintext Web API key of an integration.
type CredentialDecryptor func(integration *imodels.Integration) (string, error)

// ClientFactory builds a Steam client signed with the given key. Injected so
// tests can substitute a mock.
type ClientFactory func(apiKey string) steam.Client

// Service is the Steamworks platform implementation: both reconciliation
// engines plus the direct sync-on-write hooks.
type Service struct {
	db      *gorm.DB
	logger  *zap.Logger
	cfg     steam.Config
	entries *leaderboard.Service
	decrypt CredentialDecryptor
	clients ClientFactory
}

// NewService creates the Steamworks platform service.
func NewService(db *gorm.DB, logger *zap.Logger, cfg steam.Config, entries *leaderboard.Service, decrypt CredentialDecryptor, clients ClientFactory) *Service {
	if clients == nil {
		clients = func(apiKey string) steam.Client {
			return steam.NewClient(cfg, apiKey)
		}
	}
	return &Service{
		db:      db,
		logger:  logger,
		cfg:     cfg,
		entries: entries,
		decrypt: decrypt,
		clients: clients,
	}
}

// apiFor builds the typed API wrapper for one integration.
func (s *Service) apiFor(it *imodels.Integration) (*api, error) {
	apiKey, err := s.decrypt(it)
	if err != nil {
		return nil, err
	}
	return newAPI(s.clients(apiKey), it.Config.AppID), nil
}

// recordEvent persists an audit event on the given handle (a transaction
// when the call produced a local mutation). Audit failures are logged, never
// fatal: losing an audit row must not fail the operation it describes.
func (s *Service) recordEvent(db *gorm.DB, integrationID uint, record steam.CallRecord) {
	if err := integration.RecordEvent(db, integrationID, record); err != nil {
		s.logger.Error("Failed to record integration event",
			zap.Uint("integration_id", integrationID),
			zap.String("url", record.URL),
			zap.Error(err))
	}
}

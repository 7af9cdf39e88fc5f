package steamworks

import (
	"game-sync/core/steam"
	"game-sync/feature/integration"
	imodels "game-sync/feature/integration/models"
	"game-sync/feature/leaderboard"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface and registers the
// Steamworks platform on the integration registry.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new steamworks feature and registers its platform.
func NewFeature(db *gorm.DB, logger *zap.Logger, cfg steam.Config, entries *leaderboard.Service, integrations *integration.Service) *Feature {
	svc := NewService(db, logger, cfg, entries, integrations.DecryptAPIKey, nil)
	integrations.Register(imodels.TypeSteamworks, svc)
	h := NewHandler(svc, integrations)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "steamworks"
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

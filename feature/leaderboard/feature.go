package leaderboard

import (
	"game-sync/feature/integration"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new leaderboard feature.
func NewFeature(db *gorm.DB, logger *zap.Logger, integrations *integration.Service) *Feature {
	svc := NewService(db, logger)
	h := NewHandler(svc, integrations)
	return &Feature{service: svc, handler: h}
}

// Service exposes the entry write path for other features.
func (f *Feature) Service() *Service {
	return f.service
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "leaderboard"
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

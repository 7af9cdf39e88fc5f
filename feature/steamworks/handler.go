package steamworks

import (
	"context"
	"errors"

	"game-sync/core/logger"
	"game-sync/core/reconcile"
	"game-sync/core/steam"
	"game-sync/feature/integration"
	imodels "game-sync/feature/integration/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles on-demand Steamworks sync requests.
type Handler struct {
	service      *Service
	integrations *integration.Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, integrations *integration.Service) *Handler {
	return &Handler{service: service, integrations: integrations}
}

// RegisterRoutes registers the steamworks routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/games/:gameId/integrations/steamworks")
	group.Post("/sync-leaderboards", h.HandleSyncLeaderboards)
	group.Post("/sync-stats", h.HandleSyncStats)
}

// HandleSyncLeaderboards runs an on-demand leaderboard reconciliation.
// @Summary Sync Leaderboards
// @Description Run a full bidirectional leaderboard sync against Steam.
// @Tags steamworks
// @Produce json
// @Param gameId path int true "Game id"
// @Success 200 {object} reconcile.Report "Run report"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 503 {object} map[string]string "Steam unavailable"
// @Router /games/{gameId}/integrations/steamworks/sync-leaderboards [post]
func (h *Handler) HandleSyncLeaderboards(c *fiber.Ctx) error {
	return h.runSync(c, h.integrations.SyncLeaderboards)
}

// HandleSyncStats runs an on-demand stat reconciliation.
// @Summary Sync Stats
// @Description Run a full bidirectional stat sync against Steam.
// @Tags steamworks
// @Produce json
// @Param gameId path int true "Game id"
// @Success 200 {object} reconcile.Report "Run report"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 503 {object} map[string]string "Steam unavailable"
// @Router /games/{gameId}/integrations/steamworks/sync-stats [post]
func (h *Handler) HandleSyncStats(c *fiber.Ctx) error {
	return h.runSync(c, h.integrations.SyncStats)
}

func (h *Handler) runSync(c *fiber.Ctx, sync func(ctx context.Context, it *imodels.Integration) (*reconcile.Report, error)) error {
	l := logger.WithRayID(h.service.logger, c)

	gameID, err := c.ParamsInt("gameId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid game id"})
	}

	it, err := h.integrations.Get(c.Context(), uint(gameID), imodels.TypeSteamworks)
	if err != nil {
		if errors.Is(err, integration.ErrIntegrationNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Integration lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	report, err := sync(c.Context(), it)
	if err != nil {
		switch {
		case errors.Is(err, steam.ErrSteamUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Steam is unavailable, please try again later",
			})
		case errors.Is(err, ErrMalformedResponse):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			l.Error("Sync failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if report == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sync is disabled for this integration"})
	}
	return c.JSON(report)
}

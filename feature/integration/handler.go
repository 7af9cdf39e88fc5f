package integration

import (
	"game-sync/core/logger"
	"game-sync/feature/integration/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrations.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integration routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/games/:gameId/integrations")
	group.Post("/", h.HandleCreateIntegration)
	group.Get("/", h.HandleListIntegrations)
}

type createIntegrationRequest struct {
	Type             string `json:"type"`
	APIKey           string `json:"api_key"`
	AppID            int    `json:"app_id"`
	SyncLeaderboards bool   `json:"sync_leaderboards"`
	SyncStats        bool   `json:"sync_stats"`
}

// HandleCreateIntegration connects a game to an external platform.
// @Summary Create Integration
// @Description Connect a game to a platform. The credential is encrypted at rest.
// @Tags integrations
// @Accept json
// @Produce json
// @Param gameId path int true "Game id"
// @Success 201 {object} models.Integration "Integration"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /games/{gameId}/integrations [post]
func (h *Handler) HandleCreateIntegration(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	gameID, err := c.ParamsInt("gameId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid game id"})
	}

	var req createIntegrationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if _, ok := h.service.platforms[req.Type]; !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown integration type"})
	}
	if req.APIKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "api_key is required"})
	}

	cfg := models.Config{
		AppID:            req.AppID,
		SyncLeaderboards: req.SyncLeaderboards,
		SyncStats:        req.SyncStats,
	}
	integration, err := h.service.Create(c.Context(), uint(gameID), req.Type, req.APIKey, cfg)
	if err != nil {
		l.Error("Integration creation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	// Never echo the stored credential, even encrypted.
	integration.Config.APIKey = ""
	return c.Status(fiber.StatusCreated).JSON(integration)
}

// HandleListIntegrations lists a game's live integrations.
// @Summary List Integrations
// @Description List a game's live platform integrations.
// @Tags integrations
// @Produce json
// @Param gameId path int true "Game id"
// @Success 200 {array} models.Integration "Integrations"
// @Router /games/{gameId}/integrations [get]
func (h *Handler) HandleListIntegrations(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	gameID, err := c.ParamsInt("gameId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid game id"})
	}

	integrations, err := h.service.ForGame(c.Context(), uint(gameID))
	if err != nil {
		l.Error("Integration listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	for i := range integrations {
		integrations[i].Config.APIKey = ""
	}
	return c.JSON(integrations)
}

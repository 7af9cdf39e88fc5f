package stat

import (
	"errors"

	"game-sync/core/logger"
	"game-sync/feature/integration"
	"game-sync/feature/stat/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles HTTP requests for player stats.
type Handler struct {
	service      *Service
	integrations *integration.Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, integrations *integration.Service) *Handler {
	return &Handler{service: service, integrations: integrations}
}

// RegisterRoutes registers the stat routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/players/:playerId/stats")
	group.Put("/:internalName", h.HandleTrackStat)
	group.Get("/:internalName", h.HandleGetStat)
}

type trackStatRequest struct {
	GameID uint    `json:"game_id"`
	Value  float64 `json:"value"`
}

// HandleTrackStat sets a player's current value for a stat.
// @Summary Track Stat
// @Description Set a player's stat value, clamped to the stat's bounds.
// @Tags stats
// @Accept json
// @Produce json
// @Param playerId path string true "Player id"
// @Param internalName path string true "Stat internal name"
// @Success 200 {object} models.PlayerGameStat "Player stat"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 429 {object} map[string]string "Updated too recently"
// @Router /players/{playerId}/stats/{internalName} [put]
func (h *Handler) HandleTrackStat(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req trackStatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.GameID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "game_id is required"})
	}

	stat, err := h.service.Find(c.Context(), req.GameID, c.Params("internalName"))
	if err != nil {
		if errors.Is(err, ErrStatNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Stat lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	playerStat, err := h.service.Track(c.Context(), stat, c.Params("playerId"), req.Value)
	if err != nil {
		if errors.Is(err, ErrUpdateTooSoon) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Stat tracking failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	h.integrations.StatUpdated(c.Context(), stat.GameID, playerStat)
	return c.JSON(playerStat)
}

// HandleGetStat returns a player's current value for a stat.
// @Summary Get Stat
// @Description Get a player's current stat value.
// @Tags stats
// @Produce json
// @Param playerId path string true "Player id"
// @Param internalName path string true "Stat internal name"
// @Param game_id query int true "Game id"
// @Success 200 {object} models.PlayerGameStat "Player stat"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /players/{playerId}/stats/{internalName} [get]
func (h *Handler) HandleGetStat(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	stat, err := h.service.Find(c.Context(), uint(c.QueryInt("game_id", 0)), c.Params("internalName"))
	if err != nil {
		if errors.Is(err, ErrStatNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Stat lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	var playerStat models.PlayerGameStat
	err = h.service.db.WithContext(c.Context()).
		Where("player_id = ? AND stat_id = ?", c.Params("playerId"), stat.ID).
		First(&playerStat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "player stat not found"})
	}
	if err != nil {
		l.Error("Player stat lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	playerStat.Stat = *stat
	return c.JSON(playerStat)
}

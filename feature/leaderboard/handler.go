package leaderboard

import (
	"errors"
	"time"

	"game-sync/core/logger"
	"game-sync/feature/game"
	gamemodels "game-sync/feature/game/models"
	"game-sync/feature/integration"
	"game-sync/feature/leaderboard/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for leaderboards.
type Handler struct {
	service      *Service
	integrations *integration.Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, integrations *integration.Service) *Handler {
	return &Handler{service: service, integrations: integrations}
}

// RegisterRoutes registers the leaderboard routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/leaderboards")
	group.Post("/", h.HandleCreateLeaderboard)
	group.Delete("/:internalName", h.HandleDeleteLeaderboard)
	group.Post("/:internalName/entries", h.HandleSubmitEntry)
	group.Get("/:internalName/entries", h.HandleGetEntries)
	group.Patch("/:internalName/entries/:entryId/visibility", h.HandleSetEntryVisibility)
	group.Delete("/:internalName/entries/:entryId", h.HandleArchiveEntry)
}

type createLeaderboardRequest struct {
	GameID        uint   `json:"game_id"`
	InternalName  string `json:"internal_name"`
	Name          string `json:"name"`
	SortMode      string `json:"sort_mode"`
	Unique        bool   `json:"unique"`
	UniqueByProps bool   `json:"unique_by_props"`
}

// HandleCreateLeaderboard creates a leaderboard and mirrors it remotely.
// @Summary Create Leaderboard
// @Description Create a leaderboard definition for a game.
// @Tags leaderboards
// @Accept json
// @Produce json
// @Success 201 {object} models.Leaderboard "Leaderboard"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /leaderboards [post]
func (h *Handler) HandleCreateLeaderboard(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req createLeaderboardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.GameID == 0 || req.InternalName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "game_id and internal_name are required"})
	}
	if req.SortMode == "" {
		req.SortMode = models.SortModeDesc
	}

	lb := models.Leaderboard{
		GameID:        req.GameID,
		InternalName:  req.InternalName,
		Name:          req.Name,
		SortMode:      req.SortMode,
		Unique:        req.Unique,
		UniqueByProps: req.UniqueByProps,
	}
	if err := h.service.Create(c.Context(), &lb); err != nil {
		l.Error("Leaderboard creation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	h.integrations.LeaderboardCreated(c.Context(), lb.GameID, &lb)
	return c.Status(fiber.StatusCreated).JSON(lb)
}

// HandleDeleteLeaderboard deletes a leaderboard and its entries.
// @Summary Delete Leaderboard
// @Description Delete a leaderboard, its entries and its remote counterpart.
// @Tags leaderboards
// @Produce json
// @Param internalName path string true "Leaderboard internal name"
// @Param gameId query int true "Game id"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /leaderboards/{internalName} [delete]
func (h *Handler) HandleDeleteLeaderboard(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	lb, err := h.findLeaderboard(c)
	if err != nil {
		return h.leaderboardError(c, l, err)
	}

	if err := h.service.Delete(c.Context(), lb); err != nil {
		l.Error("Leaderboard deletion failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	h.integrations.LeaderboardDeleted(c.Context(), lb.GameID, lb)
	return c.SendStatus(fiber.StatusNoContent)
}

type submitEntryRequest struct {
	GameID     uint           `json:"game_id"`
	Service    string         `json:"service"`
	Identifier string         `json:"identifier"`
	Score      float64        `json:"score"`
	Props      models.PropSet `json:"props"`
	CreatedAt  *time.Time     `json:"created_at"`
}

// HandleSubmitEntry writes one score and returns its rank.
// @Summary Submit Entry
// @Description Submit a score for a player on a leaderboard.
// @Tags leaderboards
// @Accept json
// @Produce json
// @Param internalName path string true "Leaderboard internal name"
// @Success 200 {object} SubmitResult "Submission result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /leaderboards/{internalName}/entries [post]
func (h *Handler) HandleSubmitEntry(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req submitEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.GameID == 0 || req.Identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "game_id and identifier are required"})
	}
	if req.Service == "" {
		req.Service = gamemodels.ServiceUsername
	}

	lb, err := h.service.Find(c.Context(), req.GameID, c.Params("internalName"))
	if err != nil {
		return h.leaderboardError(c, l, err)
	}

	alias, err := game.FindOrCreateAlias(h.service.db, req.GameID, req.Service, req.Identifier)
	if err != nil {
		l.Error("Alias resolution failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.service.SubmitScore(c.Context(), lb, alias.ID, req.Score, req.Props, req.CreatedAt)
	if err != nil {
		l.Error("Score submission failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if result.Created || result.Updated {
		h.integrations.EntryCreated(c.Context(), lb.GameID, result.Entry)
	}
	return c.JSON(result)
}

// HandleGetEntries returns one ranked page of a leaderboard.
// @Summary Get Entries
// @Description Get a ranked page of visible leaderboard entries.
// @Tags leaderboards
// @Produce json
// @Param internalName path string true "Leaderboard internal name"
// @Param gameId query int true "Game id"
// @Param page query int false "Zero-based page"
// @Success 200 {array} models.LeaderboardEntry "Entries"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /leaderboards/{internalName}/entries [get]
func (h *Handler) HandleGetEntries(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	lb, err := h.findLeaderboard(c)
	if err != nil {
		return h.leaderboardError(c, l, err)
	}

	page := c.QueryInt("page", 0)
	pageSize := c.QueryInt("page_size", 50)
	entries, err := h.service.GetEntries(c.Context(), lb, page, pageSize)
	if err != nil {
		l.Error("Entry listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(entries)
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

// HandleSetEntryVisibility hides or unhides one entry.
// @Summary Set Entry Visibility
// @Description Toggle an entry's visibility; hidden entries leave the ranking.
// @Tags leaderboards
// @Accept json
// @Produce json
// @Success 200 {object} models.LeaderboardEntry "Entry"
// @Router /leaderboards/{internalName}/entries/{entryId}/visibility [patch]
func (h *Handler) HandleSetEntryVisibility(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req visibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	lb, err := h.findLeaderboard(c)
	if err != nil {
		return h.leaderboardError(c, l, err)
	}

	entryID, err := c.ParamsInt("entryId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid entry id"})
	}

	entry, err := h.service.SetEntryVisibility(c.Context(), uint(entryID), req.Hidden)
	if err != nil {
		l.Error("Visibility change failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	h.integrations.EntryVisibilityChanged(c.Context(), lb.GameID, entry)
	return c.JSON(entry)
}

// HandleArchiveEntry soft-deletes one entry.
// @Summary Archive Entry
// @Description Archive an entry. Its remote score is cleaned up asynchronously.
// @Tags leaderboards
// @Produce json
// @Success 204 "No Content"
// @Router /leaderboards/{internalName}/entries/{entryId} [delete]
func (h *Handler) HandleArchiveEntry(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	lb, err := h.findLeaderboard(c)
	if err != nil {
		return h.leaderboardError(c, l, err)
	}

	entryID, err := c.ParamsInt("entryId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid entry id"})
	}

	entry, err := h.service.ArchiveEntry(c.Context(), uint(entryID))
	if err != nil {
		l.Error("Entry archival failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	h.integrations.EntryArchived(c.Context(), lb.GameID, entry)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) findLeaderboard(c *fiber.Ctx) (*models.Leaderboard, error) {
	gameID := c.QueryInt("game_id", 0)
	return h.service.Find(c.Context(), uint(gameID), c.Params("internalName"))
}

func (h *Handler) leaderboardError(c *fiber.Ctx, l *zap.Logger, err error) error {
	if errors.Is(err, ErrLeaderboardNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	l.Error("Leaderboard lookup failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

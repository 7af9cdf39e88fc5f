package game

import (
	"game-sync/core/logger"
	"game-sync/feature/game/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles HTTP requests for games and players.
type Handler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// RegisterRoutes registers the game routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/games")
	group.Post("/", h.HandleCreateGame)
	group.Get("/", h.HandleListGames)
	group.Post("/:gameId/players", h.HandleCreatePlayer)
}

type createGameRequest struct {
	Name string `json:"name"`
}

// HandleCreateGame creates a game.
// @Summary Create Game
// @Description Create a game record.
// @Tags games
// @Accept json
// @Produce json
// @Success 201 {object} models.Game "Game"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /games [post]
func (h *Handler) HandleCreateGame(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	var req createGameRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	g := models.Game{Name: req.Name}
	if err := h.db.WithContext(c.Context()).Create(&g).Error; err != nil {
		l.Error("Game creation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(g)
}

// HandleListGames lists all games.
// @Summary List Games
// @Description List all games.
// @Tags games
// @Produce json
// @Success 200 {array} models.Game "Games"
// @Router /games [get]
func (h *Handler) HandleListGames(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	var games []models.Game
	if err := h.db.WithContext(c.Context()).Find(&games).Error; err != nil {
		l.Error("Game listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(games)
}

type createPlayerRequest struct {
	Service    string `json:"service"`
	Identifier string `json:"identifier"`
}

// HandleCreatePlayer creates a player with one alias.
// @Summary Create Player
// @Description Create a player in a game with an alias on a service.
// @Tags games
// @Accept json
// @Produce json
// @Param gameId path int true "Game id"
// @Success 201 {object} models.PlayerAlias "Player alias"
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /games/{gameId}/players [post]
func (h *Handler) HandleCreatePlayer(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	gameID, err := c.ParamsInt("gameId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid game id"})
	}

	var req createPlayerRequest
	if err := c.BodyParser(&req); err != nil || req.Identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "identifier is required"})
	}
	if req.Service == "" {
		req.Service = models.ServiceUsername
	}

	alias, err := FindOrCreateAlias(h.db, uint(gameID), req.Service, req.Identifier)
	if err != nil {
		l.Error("Player creation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(alias)
}

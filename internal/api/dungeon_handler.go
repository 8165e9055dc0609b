package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ericogr/dungeon-depths/internal/constants"
	"github.com/ericogr/dungeon-depths/internal/dungeon"
	"github.com/ericogr/dungeon-depths/internal/game"
	"github.com/ericogr/dungeon-depths/internal/logging"
	"github.com/ericogr/dungeon-depths/internal/storage"
)

// DungeonHandler adapts the in-process dungeon API to HTTP for the
// hosting environment. All combat semantics live below this layer.
type DungeonHandler struct {
	manager *dungeon.Manager
	repo    storage.Repository
	catalog interface {
		List() []game.DungeonDefinition
	}
}

// NewDungeonHandler builds the handler.
func NewDungeonHandler(manager *dungeon.Manager, repo storage.Repository, catalog interface{ List() []game.DungeonDefinition }) *DungeonHandler {
	return &DungeonHandler{manager: manager, repo: repo, catalog: catalog}
}

// RegisterRoutes attaches the dungeon surface under the API prefix.
func (h *DungeonHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group(constants.RouteAPIPrefix)
	api.GET(constants.RouteDungeons, h.listDungeons)
	api.POST(constants.RouteDungeonEnter, h.enterDungeon)
	api.GET(constants.RouteSessionState, h.getState)
	api.POST(constants.RouteSessionAction, h.executeAction)
	api.POST(constants.RouteSessionNext, h.nextStage)
	api.POST(constants.RouteSessionAbandon, h.abandon)
	api.POST(constants.RouteSessionAuto, h.setAutoBattle)
	api.GET(constants.RouteSessionAutoAct, h.autoAction)
	api.GET(constants.RoutePlayerStats, h.statistics)
}

// abortWithError maps core sentinels onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrCharacterNotFound),
		errors.Is(err, game.ErrDungeonNotFound),
		errors.Is(err, game.ErrSessionNotFound),
		errors.Is(err, game.ErrCombatantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrLevelTooLow),
		errors.Is(err, game.ErrInsufficientEnergy),
		errors.Is(err, game.ErrInsufficientMP),
		errors.Is(err, game.ErrSkillOnCooldown),
		errors.Is(err, game.ErrSkillUnknown),
		errors.Is(err, game.ErrNotActorTurn),
		errors.Is(err, game.ErrActionAfterTerminal),
		errors.Is(err, game.ErrDungeonComplete):
		status = http.StatusConflict
	case errors.Is(err, game.ErrInvalidBaseItem),
		errors.Is(err, game.ErrInvalidRarity):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrMutexTimeout):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logging.Error("request failed", err, logging.Fields{"path": c.FullPath()})
	}
	c.JSON(status, gin.H{constants.JSONKeyError: err.Error()})
}

func (h *DungeonHandler) listDungeons(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.List())
}

type enterRequest struct {
	UserID     string          `json:"user_id" binding:"required"`
	Difficulty game.Difficulty `json:"difficulty"`
}

func (h *DungeonHandler) enterDungeon(c *gin.Context) {
	var req enterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: "Invalid request"})
		return
	}
	sessionID, err := h.manager.EnterDungeon(req.UserID, c.Param("dungeonID"), req.Difficulty)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": sessionID})
}

func (h *DungeonHandler) getState(c *gin.Context) {
	session, err := h.manager.GetSession(c.Param("sessionID"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type actionRequest struct {
	ActorID  string          `json:"actor_id" binding:"required"`
	Type     game.ActionType `json:"type" binding:"required"`
	SkillID  string          `json:"skill_id"`
	TargetID string          `json:"target_id"`
}

func (h *DungeonHandler) executeAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: "Invalid request"})
		return
	}
	outcome, err := h.manager.ExecuteAction(c.Param("sessionID"), req.ActorID, req.Type, req.SkillID, req.TargetID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *DungeonHandler) nextStage(c *gin.Context) {
	state, err := h.manager.ProceedToNextStage(c.Param("sessionID"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *DungeonHandler) abandon(c *gin.Context) {
	if err := h.manager.AbandonDungeon(c.Param("sessionID")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyStatus: string(game.SessionFailed)})
}

type autoBattleRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *DungeonHandler) setAutoBattle(c *gin.Context) {
	var req autoBattleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: "Invalid request"})
		return
	}
	if err := h.manager.SetAutoBattle(c.Param("sessionID"), req.Enabled); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auto_battle": req.Enabled})
}

func (h *DungeonHandler) autoAction(c *gin.Context) {
	actionType, skillID, targetID, err := h.manager.GetAutoBattleAction(c.Param("sessionID"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"type":      actionType,
		"skill_id":  skillID,
		"target_id": targetID,
	})
}

func (h *DungeonHandler) statistics(c *gin.Context) {
	stats, err := h.repo.GetStatistics(c.Param("userID"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

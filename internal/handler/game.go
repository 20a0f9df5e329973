package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"solitaire-ledger/internal/auth"
	"solitaire-ledger/internal/contract"
	"solitaire-ledger/internal/ledger"
	"solitaire-ledger/internal/middleware"
	"solitaire-ledger/internal/model"
)

type GameHandler struct {
	Ledger   *ledger.Ledger
	Contract contract.Solitaire
}

type startGameBody struct {
	Player string `json:"player"`
}

type completeGameBody struct {
	Won *bool `json:"won"`
}

func gameResponse(g model.Game) gin.H {
	return gin.H{
		"gameId":    g.GameID,
		"player":    g.Player,
		"moves":     g.Moves,
		"startTime": g.StartTime,
		"endTime":   g.EndTime,
		"isWon":     g.IsWon,
		"isActive":  g.IsActive,
	}
}

func statsResponse(s model.GameStats) gin.H {
	return gin.H{
		"totalGames":      s.TotalGames,
		"gamesWon":        s.GamesWon,
		"gamesInProgress": s.GamesInProgress,
		"totalMoves":      s.TotalMoves,
	}
}

func writeInvokeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
	case errors.Is(err, contract.ErrGameNotActive), errors.Is(err, contract.ErrGameCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrArchived):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Contract instance is archived"})
	default:
		log.Printf("invoke failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invocation failed"})
	}
}

func gameIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game id"})
		return 0, false
	}
	return id, true
}

func (h *GameHandler) Start(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}

	var body startGameBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	player := body.Player
	if player == "" {
		player = identity
	}
	if !auth.ValidIdentity(player) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid player"})
		return
	}

	var id uint64
	rec, err := h.Ledger.Invoke(c.Request.Context(), identity, func(env *ledger.Env) error {
		var err error
		id, err = h.Contract.StartGame(env, player)
		return err
	})
	if err != nil {
		writeInvokeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"gameId": id, "txId": rec.TxID, "sequence": rec.Sequence})
}

func (h *GameHandler) RecordMove(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	id, ok := gameIDParam(c)
	if !ok {
		return
	}

	var game model.Game
	rec, err := h.Ledger.Invoke(c.Request.Context(), identity, func(env *ledger.Env) error {
		var err error
		game, err = h.Contract.RecordMove(env, id)
		return err
	})
	if err != nil {
		writeInvokeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": gameResponse(game), "txId": rec.TxID})
}

func (h *GameHandler) Complete(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	id, ok := gameIDParam(c)
	if !ok {
		return
	}

	var body completeGameBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Won == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var game model.Game
	rec, err := h.Ledger.Invoke(c.Request.Context(), identity, func(env *ledger.Env) error {
		var err error
		game, err = h.Contract.CompleteGame(env, id, *body.Won)
		return err
	})
	if err != nil {
		writeInvokeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": gameResponse(game), "txId": rec.TxID})
}

func (h *GameHandler) Get(c *gin.Context) {
	id, ok := gameIDParam(c)
	if !ok {
		return
	}

	var (
		game  model.Game
		found bool
	)
	_, err := h.Ledger.Invoke(c.Request.Context(), "", func(env *ledger.Env) error {
		var err error
		game, found, err = h.Contract.GameByID(env, id)
		return err
	})
	if err != nil {
		writeInvokeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": gameResponse(game)})
}

func (h *GameHandler) Stats(c *gin.Context) {
	var stats model.GameStats
	_, err := h.Ledger.Invoke(c.Request.Context(), "", func(env *ledger.Env) error {
		var err error
		stats, err = h.Contract.GameStats(env)
		return err
	})
	if err != nil {
		writeInvokeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": statsResponse(stats)})
}

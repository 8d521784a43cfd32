package handlers

import (
	"context"
	"net/http"
	"time"

	"memory_promo/internal/game"
	"memory_promo/internal/logger"
	"memory_promo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	Tokens  *service.TokenService
	Rules   game.Rules
	Version string
	// проверка хранилища для /healthz; nil - не проверяется
	Ping func(ctx context.Context) error
	// число активных сессий
	Active func() int
}

type rulesView struct {
	Deck              []string `json:"deck"`
	TotalPairs        int      `json:"total_pairs"`
	CardCount         int      `json:"card_count"`
	MaxMoves          int      `json:"max_moves"`
	TimeBudgetSeconds int      `json:"time_budget_seconds"`
	RevealDelayMS     int64    `json:"reveal_delay_ms"`
}

func newRulesView(r game.Rules) rulesView {
	return rulesView{
		Deck:              r.Deck,
		TotalPairs:        r.TotalPairs(),
		CardCount:         2 * r.TotalPairs(),
		MaxMoves:          r.MaxMoves,
		TimeBudgetSeconds: r.TimeBudgetSeconds,
		RevealDelayMS:     r.RevealDelay.Milliseconds(),
	}
}

// Новая игровая сессия: id и токен для подключения к /ws
func (h *Handler) CreateSession(c *gin.Context) {
	sessionID := uuid.NewString()
	token, expiresAt, err := h.Tokens.Issue(sessionID)
	if err != nil {
		logger.Error("failed to issue session token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": sessionID,
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
		"rules":      newRulesView(h.Rules),
	})
}

// Текущие правила игры
func (h *Handler) GetRules(c *gin.Context) {
	c.JSON(http.StatusOK, newRulesView(h.Rules))
}

func (h *Handler) Health(c *gin.Context) {
	active := 0
	if h.Active != nil {
		active = h.Active()
	}

	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "degraded",
				"error":   "store unavailable",
				"version": h.Version,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"version":         h.Version,
		"active_sessions": active,
	})
}

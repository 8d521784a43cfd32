package ws

import (
	"errors"
	"net/http"

	"memory_promo/internal/logger"
	"memory_promo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// содержит зависимости для обработки WebSocket
type WSHandler struct {
	Hub           *Hub
	Tokens        *service.TokenService
	AllowedOrigin string
}

func NewWSHandler(hub *Hub, tokens *service.TokenService, allowedOrigin string) *WSHandler {
	return &WSHandler{Hub: hub, Tokens: tokens, AllowedOrigin: allowedOrigin}
}

func (h *WSHandler) HandleWS() gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if h.AllowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == h.AllowedOrigin
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		sessionID, err := h.Tokens.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// сессия одноразовая: после отключения нужна новая через /api/session
		if !h.Hub.Admissible(sessionID) {
			c.JSON(http.StatusConflict, gin.H{"error": "session already used"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade уже ответил клиенту
			logger.Warn("websocket upgrade failed", "error", err, "session_id", sessionID)
			return
		}

		if _, err := h.Hub.Attach(sessionID, conn); err != nil {
			code := websocket.CloseTryAgainLater
			if errors.Is(err, ErrAlreadyConnected) || errors.Is(err, ErrSessionConsumed) {
				code = websocket.ClosePolicyViolation
			}
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, err.Error()))
			_ = conn.Close()
			logger.Warn("session attach rejected", "error", err, "session_id", sessionID)
		}
	}
}

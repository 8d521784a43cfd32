package http

import (
	"memory_promo/internal/http/handlers"
	"memory_promo/internal/http/middleware"
	"memory_promo/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Handler       *handlers.Handler
	WS            *ws.WSHandler
	RateLimiter   *middleware.RateLimiter // nil - без лимита
	AllowedOrigin string
}

// RegisterRoutes подключает все маршруты сервиса
func RegisterRoutes(r *gin.Engine, deps RouterDeps) {
	r.Use(middleware.CORS(deps.AllowedOrigin))

	r.GET("/healthz", deps.Handler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		create := []gin.HandlerFunc{deps.Handler.CreateSession}
		if deps.RateLimiter != nil {
			create = append([]gin.HandlerFunc{deps.RateLimiter.Middleware("session")}, create...)
		}
		api.POST("/session", create...)
		api.GET("/rules", deps.Handler.GetRules)
	}

	r.GET("/ws", deps.WS.HandleWS())
}

package handler

import (
	"net/http"
	"time"

	"eventx-ticketing/config"
	"eventx-ticketing/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires middleware and routes. limiter may be nil when Redis is disabled.
func NewRouter(cfg *config.Config, events *EventHandler, tickets *TicketHandler, limiter *ratelimit.Limiter) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)

	engine := gin.New()
	// 讓 *gin.Context 帶上 request 的取消與期限
	engine.ContextWithFallback = true
	engine.Use(RequestLogger(), gin.Recovery())
	if len(cfg.Server.AllowedOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := engine.Group("/api/v1")
	events.RegisterPublicRoutes(api.Group("", OptionalJWTAuth(cfg.Auth)))

	private := api.Group("", JWTAuth(cfg.Auth))
	events.RegisterRoutes(private)

	var bookingLimit, scanLimit gin.HandlerFunc
	if limiter != nil {
		bookingLimit = ratelimit.Middleware(limiter, ratelimit.LimitTypeBooking, userSubject)
		scanLimit = ratelimit.Middleware(limiter, ratelimit.LimitTypeScan, userSubject)
	}
	tickets.RegisterRoutes(private, bookingLimit, scanLimit)

	return engine
}

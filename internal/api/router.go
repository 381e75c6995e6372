// Package api wires the HTTP routes.
package api

import (
	"time"

	"drainwatch/backend/internal/api/handler"
	"drainwatch/backend/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter builds the gin engine with logging, recovery, CORS and all routes.
func NewRouter(h *handler.Handler, log zerolog.Logger, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.RequireActor(), h.Me)

		complaints := api.Group("/complaints", h.RequireActor())
		complaints.POST("", h.CreateComplaint)
		complaints.GET("", h.ListComplaints)
		complaints.GET("/:id", h.GetComplaint)
		complaints.POST("/:id/claim", h.ClaimComplaint)
		complaints.POST("/:id/status", h.AdvanceComplaintStatus)

		api.GET("/admin/metrics", h.RequireActor(), h.Metrics)
	}

	return r
}

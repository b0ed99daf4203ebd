package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires every route onto a gin engine. Shared by the standalone
// server and the serverless entrypoint.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Scheduling Run Orchestrator API",
			"version": "1.2.0",
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	// Run Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/runs", h.CreateRun)
		api.POST("/runs/validate", h.ValidateRunInput)
		api.POST("/runs/:id/execute", h.ExecuteRun)
		api.GET("/runs/:id", h.GetRun)
		api.GET("/runs/:id/recommendations", h.GetRunRecommendations)
		api.GET("/usage", h.GetMyUsage)
	}

	return r
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/database"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/orchestrator"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/store"
)

const dateLayout = "2006-01-02"

// createRunRequest is the trigger payload. Dates arrive as calendar days.
type createRunRequest struct {
	StartDate    string `json:"start_date" binding:"required"`
	EndDate      string `json:"end_date" binding:"required"`
	DepartmentID string `json:"department_id"`
	Goal         string `json:"optimization_goal" binding:"required,oneof=cost coverage preference balanced"`
}

// CreateRun records a pending run for the authenticated company. Execution
// is a separate call so callers can trigger and poll independently.
func (h *Handler) CreateRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not precede start_date"})
		return
	}

	runID, err := h.Store.CreateRun(c.Request.Context(), models.RunRequest{
		CompanyID:    c.GetString("companyID"),
		DepartmentID: req.DepartmentID,
		StartDate:    start,
		EndDate:      end,
		Goal:         models.OptimizationGoal(req.Goal),
	})
	if err != nil {
		h.Log.Error("failed to create run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create run"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"run_id": runID,
		"status": string(models.RunPending),
	})
}

// ExecuteRun drives a pending run through the pipeline to a terminal state.
// Only a pending run may execute; replays against a running or finished run
// get 409 instead of a second execution.
func (h *Handler) ExecuteRun(c *gin.Context) {
	run, ok := h.ownedRun(c)
	if !ok {
		return
	}

	if run.Status != string(models.RunPending) {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "run is not pending",
			"status": run.Status,
		})
		return
	}

	req := models.RunRequest{
		RunID:        run.ID,
		CompanyID:    run.CompanyID,
		DepartmentID: run.DepartmentID,
		StartDate:    run.StartDate,
		EndDate:      run.EndDate,
		Goal:         models.OptimizationGoal(run.Goal),
	}

	result, err := h.Orchestrator.Execute(c.Request.Context(), req)
	if err != nil {
		status := orchestrator.StatusForError(err)
		h.Log.Warn("run failed",
			zap.String("run_id", run.ID),
			zap.Int("status", status),
			zap.Error(err))
		c.JSON(status, gin.H{
			"success":     false,
			"run_id":      run.ID,
			"status":      string(models.RunFailed),
			"error":       err.Error(),
			"remediation": orchestrator.Remediation(err),
		})
		return
	}

	h.RecordUsage(c, result.Summary.TotalRecommendations)

	c.JSON(http.StatusOK, gin.H{
		"success":               true,
		"run_id":                run.ID,
		"status":                string(models.RunCompleted),
		"total_recommendations": result.TotalRecommendations,
		"summary":               result.Summary,
	})
}

// GetRun returns the state of one run, including its summary once complete.
func (h *Handler) GetRun(c *gin.Context) {
	run, ok := h.ownedRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRunRecommendations returns the validated recommendations a run produced.
func (h *Handler) GetRunRecommendations(c *gin.Context) {
	run, ok := h.ownedRun(c)
	if !ok {
		return
	}

	recs, err := h.Store.RecommendationsForRun(c.Request.Context(), run.ID)
	if err != nil {
		h.Log.Error("failed to load recommendations", zap.String("run_id", run.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch recommendations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":          run.ID,
		"status":          run.Status,
		"recommendations": recs,
	})
}

// ownedRun loads the :id run and enforces the company scope of the API key.
// Foreign runs 404 rather than 403 so ids don't leak across tenants.
func (h *Handler) ownedRun(c *gin.Context) (*database.SchedulingRun, bool) {
	run, err := h.Store.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return nil, false
	}
	if err != nil {
		h.Log.Error("failed to load run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch run"})
		return nil, false
	}
	if run.CompanyID != c.GetString("companyID") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return nil, false
	}
	return run, true
}

// RecordUsage records API usage in the database using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, recommendationCount int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format(dateLayout)

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + ?", 1),
			"run_count":       gorm.Expr("run_count + ?", 1),
			"recommendations": gorm.Expr("recommendations + ?", recommendationCount),
		}),
	}).Create(&database.APIUsage{
		KeyID:           apiKey.ID,
		Date:            today,
		RequestCount:    1,
		RunCount:        1,
		Recommendations: recommendationCount,
	})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ValidateRunInput checks whether a run request could succeed before a run
// is created: the window must parse and the company must have active
// employees and shift templates in scope.
func (h *Handler) ValidateRunInput(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "end_date must be YYYY-MM-DD"})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "end_date must not precede start_date"})
		return
	}

	companyID := c.GetString("companyID")

	employees, err := h.Store.Employees(c.Request.Context(), companyID, req.DepartmentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not check employees"})
		return
	}
	if len(employees) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "No active employees in scope"})
		return
	}

	shifts, err := h.Store.Shifts(c.Request.Context(), companyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not check shift templates"})
		return
	}
	if len(shifts) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "No active shift templates in scope"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"employee_count": len(employees),
			"shift_count":    len(shifts),
			"window_days":    int(end.Sub(start).Hours()/24) + 1,
		},
	})
}

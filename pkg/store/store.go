// Package store is the gorm-backed implementation of the orchestrator's
// DataStore capability, plus the run/recommendation reads the HTTP surface
// needs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/database"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

// ErrRunNotFound is returned for lookups of unknown run ids.
var ErrRunNotFound = errors.New("scheduling run not found")

// Store wraps a gorm connection.
type Store struct {
	db *gorm.DB
}

// New wraps db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Employees returns active staff for the company, optionally scoped to a
// department.
func (s *Store) Employees(ctx context.Context, companyID, departmentID string) ([]models.Employee, error) {
	q := s.db.WithContext(ctx).Where("company_id = ? AND is_active = ?", companyID, true)
	if departmentID != "" {
		q = q.Where("department_id = ?", departmentID)
	}

	var rows []database.Employee
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.Employee, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Employee{
			ID:          r.ID,
			DisplayName: r.DisplayName,
			ExternalID:  r.ExternalID,
			HireDate:    r.HireDate,
		})
	}
	return out, nil
}

// Shifts returns active shift templates for the company.
func (s *Store) Shifts(ctx context.Context, companyID string) ([]models.Shift, error) {
	var rows []database.ShiftTemplate
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.Shift, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Shift{
			ID:           r.ID,
			Name:         r.Name,
			Code:         r.Code,
			StartTime:    r.StartTime,
			EndTime:      r.EndTime,
			MinimumHours: r.MinimumHours,
			IsOvernight:  r.IsOvernight,
		})
	}
	return out, nil
}

// ExistingAssignments returns standing assignments that are not already
// fully expired before the window start.
func (s *Store) ExistingAssignments(ctx context.Context, companyID string, windowStart time.Time) ([]models.ExistingAssignment, error) {
	var rows []database.ShiftAssignment
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND (end_date IS NULL OR end_date >= ?)", companyID, windowStart).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.ExistingAssignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ExistingAssignment{
			EmployeeID:    r.EmployeeID,
			ShiftID:       r.ShiftID,
			EffectiveDate: r.EffectiveDate,
			EndDate:       r.EndDate,
		})
	}
	return out, nil
}

// Preferences returns per-employee scheduling preferences.
func (s *Store) Preferences(ctx context.Context, companyID string) ([]models.Preference, error) {
	var rows []database.ShiftPreference
	if err := s.db.WithContext(ctx).Where("company_id = ?", companyID).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.Preference, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Preference{
			EmployeeID: r.EmployeeID,
			ShiftID:    r.ShiftID,
			DayOfWeek:  r.DayOfWeek,
			Weight:     r.Weight,
			Payload:    json.RawMessage(r.Payload),
		})
	}
	return out, nil
}

// Constraints returns active scheduling constraints.
func (s *Store) Constraints(ctx context.Context, companyID string) ([]models.Constraint, error) {
	var rows []database.SchedulingConstraint
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.Constraint, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Constraint{
			RuleType:         r.RuleType,
			IsHardConstraint: r.IsHardConstraint,
			EmployeeID:       r.EmployeeID,
			ShiftID:          r.ShiftID,
			DayOfWeek:        r.DayOfWeek,
			LimitHours:       r.LimitHours,
			Description:      r.Description,
		})
	}
	return out, nil
}

// DemandForecasts returns forecasts dated inside the window.
func (s *Store) DemandForecasts(ctx context.Context, companyID string, window models.DateRange) ([]models.DemandForecast, error) {
	var rows []database.DemandForecast
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND date >= ? AND date <= ?", companyID, window.Start, window.End).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.DemandForecast, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.DemandForecast{
			Date:              r.Date,
			ShiftID:           r.ShiftID,
			RequiredHeadcount: r.RequiredHeadcount,
		})
	}
	return out, nil
}

// FatigueRules returns active fatigue rules.
func (s *Store) FatigueRules(ctx context.Context, companyID string) ([]models.FatigueRule, error) {
	var rows []database.FatigueRule
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.FatigueRule, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.FatigueRule{
			MaxConsecutiveDays: r.MaxConsecutiveDays,
			MinRestHours:       r.MinRestHours,
			MaxWeeklyHours:     r.MaxWeeklyHours,
		})
	}
	return out, nil
}

// CreateRun inserts a pending run record and returns its id. Callers create
// the run first, then trigger execution against the id.
func (s *Store) CreateRun(ctx context.Context, req models.RunRequest) (string, error) {
	id := req.RunID
	if id == "" {
		id = uuid.NewString()
	}
	run := database.SchedulingRun{
		ID:           id,
		CompanyID:    req.CompanyID,
		DepartmentID: req.DepartmentID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Goal:         string(req.Goal),
		Status:       string(models.RunPending),
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// GetRun returns one run record.
func (s *Store) GetRun(ctx context.Context, runID string) (*database.SchedulingRun, error) {
	var run database.SchedulingRun
	err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RecommendationsForRun returns the validated recommendations a run owns.
func (s *Store) RecommendationsForRun(ctx context.Context, runID string) ([]database.AssignmentRecommendation, error) {
	var rows []database.AssignmentRecommendation
	err := s.db.WithContext(ctx).
		Where("schedule_run_id = ?", runID).
		Order("recommended_date, shift_id, employee_id").
		Find(&rows).Error
	return rows, err
}

// MarkRunRunning transitions a run to running. Kept separate from the
// terminal write so a crash mid-run is visible as a stuck running row.
func (s *Store) MarkRunRunning(ctx context.Context, runID, modelUsed string, startedAt time.Time) error {
	return s.updateRun(ctx, runID, map[string]any{
		"status":        string(models.RunRunning),
		"ai_model_used": modelUsed,
		"started_at":    startedAt,
	})
}

// MarkRunCompleted records the terminal completed state with its summary.
func (s *Store) MarkRunCompleted(ctx context.Context, runID string, summary models.RunSummary, completedAt time.Time) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	return s.updateRun(ctx, runID, map[string]any{
		"status":       string(models.RunCompleted),
		"summary":      payload,
		"completed_at": completedAt,
	})
}

// MarkRunFailed records the terminal failed state with a human-readable
// message.
func (s *Store) MarkRunFailed(ctx context.Context, runID, message string, completedAt time.Time) error {
	return s.updateRun(ctx, runID, map[string]any{
		"status":        string(models.RunFailed),
		"error_message": message,
		"completed_at":  completedAt,
	})
}

func (s *Store) updateRun(ctx context.Context, runID string, fields map[string]any) error {
	res := s.db.WithContext(ctx).
		Model(&database.SchedulingRun{}).
		Where("id = ?", runID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// SaveRecommendations inserts validated rows for a run. The OnConflict
// clause makes the insert idempotent over the run's natural key, so a
// replayed write cannot duplicate or mutate existing rows.
func (s *Store) SaveRecommendations(ctx context.Context, recs []models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}

	rows := make([]database.AssignmentRecommendation, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, database.AssignmentRecommendation{
			ID:              uuid.NewString(),
			ScheduleRunID:   rec.RunID,
			EmployeeID:      rec.EmployeeID,
			ShiftID:         rec.ShiftID,
			RecommendedDate: rec.RecommendedDate,
			StartTime:       rec.StartTime,
			EndTime:         rec.EndTime,
			ConfidenceScore: rec.ConfidenceScore,
			Reasoning:       rec.Reasoning,
		})
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "schedule_run_id"}, {Name: "employee_id"},
			{Name: "shift_id"}, {Name: "recommended_date"},
		},
		DoNothing: true,
	}).Create(&rows).Error
}

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

// DataStore is the storage capability the orchestrator depends on. It is
// always passed in explicitly; the orchestrator never reaches for a global
// client.
type DataStore interface {
	// Aggregation reads. Each collection is independently fetchable and
	// independently allowed to be empty.
	Employees(ctx context.Context, companyID, departmentID string) ([]models.Employee, error)
	Shifts(ctx context.Context, companyID string) ([]models.Shift, error)
	ExistingAssignments(ctx context.Context, companyID string, windowStart time.Time) ([]models.ExistingAssignment, error)
	Preferences(ctx context.Context, companyID string) ([]models.Preference, error)
	Constraints(ctx context.Context, companyID string) ([]models.Constraint, error)
	DemandForecasts(ctx context.Context, companyID string, window models.DateRange) ([]models.DemandForecast, error)
	FatigueRules(ctx context.Context, companyID string) ([]models.FatigueRule, error)

	// Run lifecycle writes.
	MarkRunRunning(ctx context.Context, runID, modelUsed string, startedAt time.Time) error
	MarkRunCompleted(ctx context.Context, runID string, summary models.RunSummary, completedAt time.Time) error
	MarkRunFailed(ctx context.Context, runID, message string, completedAt time.Time) error

	// SaveRecommendations idempotently inserts validated rows for a run.
	SaveRecommendations(ctx context.Context, recs []models.Recommendation) error
}

// AggregatedData is the raw output of one aggregation pass. Warnings carries
// degraded-input notes for collections that failed to fetch and were
// substituted with empty ones.
type AggregatedData struct {
	Employees           []models.Employee
	Shifts              []models.Shift
	ExistingAssignments []models.ExistingAssignment
	Preferences         []models.Preference
	Constraints         []models.Constraint
	DemandForecasts     []models.DemandForecast
	FatigueRules        []models.FatigueRule
	Warnings            []string
}

// aggregate collects the bounded input set for one run. A failure fetching
// employees or shifts is fatal; the four auxiliary collections degrade to
// empty with a logged warning.
func (o *Orchestrator) aggregate(ctx context.Context, req models.RunRequest) (*AggregatedData, error) {
	data := &AggregatedData{}
	window := models.DateRange{Start: req.StartDate, End: req.EndDate}

	var err error
	data.Employees, err = o.store.Employees(ctx, req.CompanyID, req.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: employees: %v", ErrInputFetch, err)
	}
	if len(data.Employees) == 0 {
		return nil, fmt.Errorf("%w: no active employees in scope", ErrInputFetch)
	}

	data.Shifts, err = o.store.Shifts(ctx, req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("%w: shifts: %v", ErrInputFetch, err)
	}
	if len(data.Shifts) == 0 {
		return nil, fmt.Errorf("%w: no active shift templates in scope", ErrInputFetch)
	}

	// Assignments share the fatal class: an incomplete picture of standing
	// rosters would let the optimizer double-book.
	data.ExistingAssignments, err = o.store.ExistingAssignments(ctx, req.CompanyID, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: existing assignments: %v", ErrInputFetch, err)
	}

	data.Preferences = degraded(ctx, o.log, data, "preferences", func(ctx context.Context) ([]models.Preference, error) {
		return o.store.Preferences(ctx, req.CompanyID)
	})
	data.Constraints = degraded(ctx, o.log, data, "constraints", func(ctx context.Context) ([]models.Constraint, error) {
		return o.store.Constraints(ctx, req.CompanyID)
	})
	data.DemandForecasts = degraded(ctx, o.log, data, "demand forecasts", func(ctx context.Context) ([]models.DemandForecast, error) {
		return o.store.DemandForecasts(ctx, req.CompanyID, window)
	})
	data.FatigueRules = degraded(ctx, o.log, data, "fatigue rules", func(ctx context.Context) ([]models.FatigueRule, error) {
		return o.store.FatigueRules(ctx, req.CompanyID)
	})

	return data, nil
}

// degraded runs a non-structural fetch, substituting an empty collection and
// recording a warning on failure.
func degraded[T any](ctx context.Context, log *zap.Logger, data *AggregatedData, name string, fetch func(context.Context) ([]T, error)) []T {
	rows, err := fetch(ctx)
	if err != nil {
		log.Warn("aggregation degraded, continuing with empty collection",
			zap.String("collection", name), zap.Error(err))
		data.Warnings = append(data.Warnings, fmt.Sprintf("%s unavailable, run proceeded without them: %v", name, err))
		return nil
	}
	return rows
}

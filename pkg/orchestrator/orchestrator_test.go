package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/optimizer"
)

// fakeStore is an in-memory DataStore that records lifecycle writes.
type fakeStore struct {
	employees   []models.Employee
	shifts      []models.Shift
	assignments []models.ExistingAssignment
	preferences []models.Preference
	constraints []models.Constraint
	forecasts   []models.DemandForecast
	fatigue     []models.FatigueRule

	employeesErr   error
	assignmentsErr error
	preferencesErr error
	constraintsErr error
	forecastsErr   error
	fatigueErr     error
	markFailedErr  error
	saveErr        error

	runningCalls   int
	completedCalls int
	failedCalls    int
	failedMessage  string
	savedRecs      []models.Recommendation
	summary        models.RunSummary
}

func (f *fakeStore) Employees(ctx context.Context, companyID, departmentID string) ([]models.Employee, error) {
	return f.employees, f.employeesErr
}

func (f *fakeStore) Shifts(ctx context.Context, companyID string) ([]models.Shift, error) {
	return f.shifts, nil
}

func (f *fakeStore) ExistingAssignments(ctx context.Context, companyID string, windowStart time.Time) ([]models.ExistingAssignment, error) {
	return f.assignments, f.assignmentsErr
}

func (f *fakeStore) Preferences(ctx context.Context, companyID string) ([]models.Preference, error) {
	return f.preferences, f.preferencesErr
}

func (f *fakeStore) Constraints(ctx context.Context, companyID string) ([]models.Constraint, error) {
	return f.constraints, f.constraintsErr
}

func (f *fakeStore) DemandForecasts(ctx context.Context, companyID string, window models.DateRange) ([]models.DemandForecast, error) {
	return f.forecasts, f.forecastsErr
}

func (f *fakeStore) FatigueRules(ctx context.Context, companyID string) ([]models.FatigueRule, error) {
	return f.fatigue, f.fatigueErr
}

func (f *fakeStore) MarkRunRunning(ctx context.Context, runID, modelUsed string, startedAt time.Time) error {
	f.runningCalls++
	return nil
}

func (f *fakeStore) MarkRunCompleted(ctx context.Context, runID string, summary models.RunSummary, completedAt time.Time) error {
	f.completedCalls++
	f.summary = summary
	return nil
}

func (f *fakeStore) MarkRunFailed(ctx context.Context, runID, message string, completedAt time.Time) error {
	f.failedCalls++
	f.failedMessage = message
	return f.markFailedErr
}

func (f *fakeStore) SaveRecommendations(ctx context.Context, recs []models.Recommendation) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedRecs = append(f.savedRecs, recs...)
	return nil
}

// fakeOptimizer returns a canned result or error, optionally panicking.
type fakeOptimizer struct {
	result   *models.OptimizerResult
	err      error
	panicMsg string
	calls    int
}

func (f *fakeOptimizer) Name() string { return "fake" }

func (f *fakeOptimizer) Optimize(ctx context.Context, sc *models.SchedulingContext) (*models.OptimizerResult, error) {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func populatedStore() *fakeStore {
	return &fakeStore{
		employees: []models.Employee{{ID: "e1", DisplayName: "Alice"}, {ID: "e2", DisplayName: "Bob"}},
		shifts:    []models.Shift{{ID: "s1", Name: "Morning", StartTime: "09:00", EndTime: "17:00"}},
	}
}

func testRequest() models.RunRequest {
	return models.RunRequest{
		RunID:     "run-1",
		CompanyID: "acme",
		StartDate: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		Goal:      models.GoalBalanced,
	}
}

func newTestOrchestrator(st *fakeStore, opt optimizer.Optimizer) *Orchestrator {
	return New(st, opt, zap.NewNop())
}

func TestExecute_HappyPath(t *testing.T) {
	st := populatedStore()
	opt := &fakeOptimizer{result: &models.OptimizerResult{
		Recommendations: []models.RawRecommendation{
			{EmployeeID: "e1", ShiftID: "s1", Date: "2025-03-03", ConfidenceScore: 0.9, Reasoning: "fits"},
			{EmployeeID: "e2", ShiftID: "s1", Date: "2025-03-04"},
		},
	}}

	result, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 2, result.TotalRecommendations)
	assert.Equal(t, 1, st.runningCalls)
	assert.Equal(t, 1, st.completedCalls)
	assert.Equal(t, 0, st.failedCalls)
	assert.Empty(t, result.Summary.Warnings)
	require.Len(t, st.savedRecs, 2)

	// Missing fields are defaulted during validation
	second := st.savedRecs[1]
	assert.Equal(t, "09:00", second.StartTime)
	assert.Equal(t, "17:00", second.EndTime)
	assert.Equal(t, 0.8, second.ConfidenceScore)
	assert.Equal(t, "optimizer-assigned", second.Reasoning)
}

func TestExecute_RejectsUnknownIDs(t *testing.T) {
	st := populatedStore()
	opt := &fakeOptimizer{result: &models.OptimizerResult{
		Recommendations: []models.RawRecommendation{
			{EmployeeID: "e1", ShiftID: "s1", Date: "2025-03-03"},
			{EmployeeID: "ghost", ShiftID: "s1", Date: "2025-03-03"},
			{EmployeeID: "e2", ShiftID: "nope", Date: "2025-03-03"},
			{EmployeeID: "e2", ShiftID: "s1", Date: "not-a-date"},
		},
	}}

	result, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalRecommendations)
	assert.Len(t, st.savedRecs, 1)
	assert.Len(t, result.Summary.Warnings, 3)
	for _, w := range result.Summary.Warnings {
		assert.Contains(t, w, "dropped recommendation")
	}
	assert.Equal(t, 1, st.completedCalls)
}

func TestExecute_ComputesCoverageWhenOmitted(t *testing.T) {
	st := populatedStore()
	opt := &fakeOptimizer{result: &models.OptimizerResult{
		Recommendations: []models.RawRecommendation{
			{EmployeeID: "e1", ShiftID: "s1", Date: "2025-03-03"},
		},
	}}

	result, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.NoError(t, err)

	// 1 shift x 2 days, 1 covered pair
	require.NotNil(t, result.Summary.CoverageScore)
	assert.InDelta(t, 0.5, *result.Summary.CoverageScore, 1e-9)
	assert.Nil(t, result.Summary.PreferenceScore)
}

func TestExecute_InputFetchFailureIsFatal(t *testing.T) {
	st := populatedStore()
	st.employeesErr = errors.New("connection refused")
	opt := &fakeOptimizer{}

	_, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrInputFetch)
	assert.Equal(t, 0, opt.calls, "optimizer must not run without employees")
	assert.Equal(t, 1, st.failedCalls)
	assert.Equal(t, 0, st.completedCalls)
	assert.Contains(t, st.failedMessage, "employees")
}

func TestExecute_NoEmployeesInScope(t *testing.T) {
	st := populatedStore()
	st.employees = nil
	opt := &fakeOptimizer{}

	_, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrInputFetch)
	assert.Equal(t, 0, opt.calls)
	assert.Equal(t, 1, st.failedCalls)
}

func TestExecute_AuxiliaryFetchDegrades(t *testing.T) {
	st := populatedStore()
	st.preferencesErr = errors.New("table locked")
	opt := &fakeOptimizer{result: &models.OptimizerResult{
		Recommendations: []models.RawRecommendation{
			{EmployeeID: "e1", ShiftID: "s1", Date: "2025-03-03"},
		},
	}}

	result, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, st.completedCalls)
	require.NotEmpty(t, result.Summary.Warnings)
	assert.Contains(t, result.Summary.Warnings[0], "preferences unavailable")
}

func TestExecute_AllAuxiliaryFetchesDegrade(t *testing.T) {
	st := populatedStore()
	st.preferencesErr = errors.New("down")
	st.constraintsErr = errors.New("down")
	st.forecastsErr = errors.New("down")
	st.fatigueErr = errors.New("down")
	opt := &fakeOptimizer{result: &models.OptimizerResult{
		Recommendations: []models.RawRecommendation{
			{EmployeeID: "e1", ShiftID: "s1", Date: "2025-03-03"},
		},
	}}

	result, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, st.completedCalls)
	assert.Equal(t, 0, st.failedCalls)
	assert.Len(t, result.Summary.Warnings, 4)
}

func TestExecute_CapacityErrorPropagates(t *testing.T) {
	st := populatedStore()
	opt := &fakeOptimizer{err: optimizer.ErrCapacityExhausted}

	_, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.Error(t, err)

	assert.ErrorIs(t, err, optimizer.ErrCapacityExhausted)
	assert.Equal(t, http.StatusTooManyRequests, StatusForError(err))
	assert.Equal(t, 1, st.failedCalls)
	assert.Equal(t, 0, st.completedCalls)
}

func TestExecute_QuotaErrorPropagates(t *testing.T) {
	st := populatedStore()
	opt := &fakeOptimizer{err: optimizer.ErrQuotaExceeded}

	_, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	assert.ErrorIs(t, err, optimizer.ErrQuotaExceeded)
	assert.Equal(t, http.StatusPaymentRequired, StatusForError(err))
}

func TestExecute_DeadlineMapsToTimeout(t *testing.T) {
	st := populatedStore()
	opt := &fakeOptimizer{err: context.DeadlineExceeded}

	_, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.Error(t, err)

	assert.ErrorIs(t, err, optimizer.ErrTimeout)
	assert.Equal(t, http.StatusTooManyRequests, StatusForError(err))
	assert.Equal(t, 1, st.failedCalls)
}

func TestExecute_MalformedOutputFailsRun(t *testing.T) {
	st := populatedStore()
	opt := &fakeOptimizer{err: &optimizer.MalformedOutputError{Reason: "no JSON", Raw: "gibberish"}}

	_, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.Error(t, err)

	var malformed *optimizer.MalformedOutputError
	assert.True(t, errors.As(err, &malformed))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(err))
	assert.Equal(t, 1, st.failedCalls)
	assert.Contains(t, st.failedMessage, "malformed optimizer output")
}

func TestExecute_PanicRecovered(t *testing.T) {
	st := populatedStore()
	opt := &fakeOptimizer{panicMsg: "index out of range"}

	_, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.Error(t, err)

	assert.Contains(t, err.Error(), "unhandled panic")
	assert.Equal(t, 1, st.failedCalls)
	assert.Equal(t, 0, st.completedCalls)
}

func TestExecute_FailedWriteErrorSwallowed(t *testing.T) {
	st := populatedStore()
	st.employeesErr = errors.New("db down")
	st.markFailedErr = errors.New("db still down")
	opt := &fakeOptimizer{}

	// The original failure must surface even when recording it also fails
	_, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrInputFetch)
}

func TestExecute_PersistenceFailureFailsRun(t *testing.T) {
	st := populatedStore()
	st.saveErr = errors.New("disk full")
	opt := &fakeOptimizer{result: &models.OptimizerResult{
		Recommendations: []models.RawRecommendation{
			{EmployeeID: "e1", ShiftID: "s1", Date: "2025-03-03"},
		},
	}}

	_, err := newTestOrchestrator(st, opt).Execute(context.Background(), testRequest())
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 0, st.completedCalls)
	assert.Equal(t, 1, st.failedCalls)
}

func TestExecute_BadRequest(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.RunRequest)
	}{
		{"missing run id", func(r *models.RunRequest) { r.RunID = "" }},
		{"missing company", func(r *models.RunRequest) { r.CompanyID = "" }},
		{"unknown goal", func(r *models.RunRequest) { r.Goal = "fastest" }},
		{"inverted window", func(r *models.RunRequest) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := populatedStore()
			opt := &fakeOptimizer{}
			req := testRequest()
			tc.mutate(&req)

			_, err := newTestOrchestrator(st, opt).Execute(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadRequest)
			assert.Equal(t, http.StatusBadRequest, StatusForError(err))
			assert.Equal(t, 0, st.runningCalls)
			assert.Equal(t, 0, opt.calls)
		})
	}
}

package models

import (
	"encoding/json"
	"time"
)

// OptimizationGoal selects what the optimizer should favour when trading off
// candidate assignments against each other.
type OptimizationGoal string

const (
	GoalCost       OptimizationGoal = "cost"
	GoalCoverage   OptimizationGoal = "coverage"
	GoalPreference OptimizationGoal = "preference"
	GoalBalanced   OptimizationGoal = "balanced"
)

// Valid reports whether g is one of the known goals.
func (g OptimizationGoal) Valid() bool {
	switch g {
	case GoalCost, GoalCoverage, GoalPreference, GoalBalanced:
		return true
	}
	return false
}

// RunStatus is the lifecycle state of a scheduling run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// DateRange is the inclusive scheduling window for one run.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// Days returns every date in the range, start through end inclusive.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// RunRequest is the caller-supplied trigger for one scheduling run. The run
// record must already exist in pending state under RunID.
type RunRequest struct {
	RunID        string           `json:"run_id"`
	CompanyID    string           `json:"company_id"`
	StartDate    time.Time        `json:"start_date"`
	EndDate      time.Time        `json:"end_date"`
	DepartmentID string           `json:"department_id,omitempty"`
	Goal         OptimizationGoal `json:"optimization_goal"`
}

// Employee is an active staff member eligible for assignment
type Employee struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	ExternalID  string     `json:"external_id,omitempty"`
	HireDate    *time.Time `json:"hire_date,omitempty"`
}

// Shift is an active shift template
type Shift struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Code         string  `json:"code,omitempty"`
	StartTime    string  `json:"start_time"` // "15:04"
	EndTime      string  `json:"end_time"`   // "15:04"
	MinimumHours float64 `json:"minimum_hours,omitempty"`
	IsOvernight  bool    `json:"is_overnight,omitempty"`
}

// DurationHours is the shift length in hours, accounting for overnight wrap.
func (s Shift) DurationHours() float64 {
	start, err1 := time.Parse("15:04", s.StartTime)
	end, err2 := time.Parse("15:04", s.EndTime)
	if err1 != nil || err2 != nil {
		return s.MinimumHours
	}
	hours := end.Sub(start).Hours()
	if hours <= 0 && s.IsOvernight {
		hours += 24
	}
	if hours < s.MinimumHours {
		return s.MinimumHours
	}
	return hours
}

// ExistingAssignment is a standing employee-shift pairing that overlaps the
// scheduling window.
type ExistingAssignment struct {
	EmployeeID    string     `json:"employee_id"`
	ShiftID       string     `json:"shift_id"`
	EffectiveDate time.Time  `json:"effective_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
}

// Preference is a per-employee scheduling preference. Payload carries the
// source record verbatim for the optimizer; the typed fields are the subset
// the deterministic solver understands.
type Preference struct {
	EmployeeID string          `json:"employee_id"`
	ShiftID    string          `json:"shift_id,omitempty"`
	DayOfWeek  *int            `json:"day_of_week,omitempty"` // 0=Sunday
	Weight     float64         `json:"weight,omitempty"`      // positive = wants, negative = avoids
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Constraint rule types understood by the deterministic solver. Unknown types
// are still forwarded to inference-backed optimizers.
const (
	RuleUnavailable    = "unavailable"
	RuleMaxWeeklyHours = "max_weekly_hours"
	RuleRequiredRest   = "required_rest"
)

// Constraint is a scheduling rule, mandatory when IsHardConstraint is set.
type Constraint struct {
	RuleType         string  `json:"rule_type"`
	IsHardConstraint bool    `json:"is_hard_constraint"`
	EmployeeID       string  `json:"employee_id,omitempty"`
	ShiftID          string  `json:"shift_id,omitempty"`
	DayOfWeek        *int    `json:"day_of_week,omitempty"`
	LimitHours       float64 `json:"limit_hours,omitempty"`
	Description      string  `json:"description,omitempty"`
}

// DemandForecast is the expected headcount need for a shift on a date. A zero
// ShiftID applies the forecast to every shift that day.
type DemandForecast struct {
	Date              time.Time `json:"date"`
	ShiftID           string    `json:"shift_id,omitempty"`
	RequiredHeadcount int       `json:"required_headcount"`
}

// FatigueRule limits how hard any one employee may be scheduled.
type FatigueRule struct {
	MaxConsecutiveDays int     `json:"max_consecutive_days,omitempty"`
	MinRestHours       float64 `json:"min_rest_hours,omitempty"`
	MaxWeeklyHours     float64 `json:"max_weekly_hours,omitempty"`
}

// SchedulingContext is the immutable, self-contained snapshot of everything
// one run needs. It holds plain serializable data only so it can cross a
// process boundary unchanged.
type SchedulingContext struct {
	DateRange           DateRange            `json:"date_range"`
	Goal                OptimizationGoal     `json:"optimization_goal"`
	Employees           []Employee           `json:"employees"`
	Shifts              []Shift              `json:"shifts"`
	ExistingAssignments []ExistingAssignment `json:"existing_assignments"`
	Preferences         []Preference         `json:"preferences"`
	Constraints         []Constraint         `json:"constraints"`
	DemandForecasts     []DemandForecast     `json:"demand_forecasts"`
	FatigueRules        []FatigueRule        `json:"fatigue_rules"`
}

// EmployeeIDs returns the set of employee ids in the context.
func (c *SchedulingContext) EmployeeIDs() map[string]bool {
	ids := make(map[string]bool, len(c.Employees))
	for _, e := range c.Employees {
		ids[e.ID] = true
	}
	return ids
}

// ShiftsByID returns shifts indexed by id.
func (c *SchedulingContext) ShiftsByID() map[string]Shift {
	byID := make(map[string]Shift, len(c.Shifts))
	for _, s := range c.Shifts {
		byID[s.ID] = s
	}
	return byID
}

// RawRecommendation is one candidate assignment as produced by an optimizer,
// before validation.
type RawRecommendation struct {
	EmployeeID      string  `json:"employee_id"`
	EmployeeName    string  `json:"employee_name,omitempty"`
	ShiftID         string  `json:"shift_id"`
	ShiftName       string  `json:"shift_name,omitempty"`
	Date            string  `json:"date"` // "2006-01-02"
	StartTime       string  `json:"start_time,omitempty"`
	EndTime         string  `json:"end_time,omitempty"`
	ConfidenceScore float64 `json:"confidence_score,omitempty"`
	Reasoning       string  `json:"reasoning,omitempty"`
}

// OptimizerSummary is the optimizer's own view of result quality.
type OptimizerSummary struct {
	CoverageScore        *float64 `json:"coverage_score,omitempty"`
	PreferenceScore      *float64 `json:"preference_score,omitempty"`
	EstimatedWeeklyHours *float64 `json:"estimated_weekly_hours,omitempty"`
	ConstraintViolations int      `json:"constraint_violations,omitempty"`
	Warnings             []string `json:"warnings,omitempty"`
}

// OptimizerResult is the full output of one optimize call.
type OptimizerResult struct {
	Recommendations []RawRecommendation `json:"recommendations"`
	Summary         OptimizerSummary    `json:"summary"`
}

// Recommendation is a validated candidate assignment owned by a run. Never
// mutated after creation; a re-run produces a new run id and new rows.
type Recommendation struct {
	RunID           string  `json:"run_id"`
	EmployeeID      string  `json:"employee_id"`
	ShiftID         string  `json:"shift_id"`
	RecommendedDate string  `json:"recommended_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reasoning       string  `json:"reasoning"`
}

// Rejection records one raw recommendation dropped during validation.
type Rejection struct {
	Reason string            `json:"reason"`
	Raw    RawRecommendation `json:"raw"`
}

// RunSummary is persisted onto the run record at completion.
type RunSummary struct {
	TotalRecommendations int      `json:"total_recommendations"`
	CoverageScore        *float64 `json:"coverage_score,omitempty"`
	PreferenceScore      *float64 `json:"preference_score,omitempty"`
	ConstraintViolations int      `json:"constraint_violations"`
	Warnings             []string `json:"warnings"`
}

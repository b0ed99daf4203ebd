package optimizer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

func day(d int) time.Time {
	// March 2025: the 3rd is a Monday
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func baseContext() *models.SchedulingContext {
	return &models.SchedulingContext{
		DateRange: models.DateRange{Start: day(3), End: day(3)},
		Goal:      models.GoalBalanced,
		Employees: []models.Employee{
			{ID: "e1", DisplayName: "Alice"},
			{ID: "e2", DisplayName: "Bob"},
		},
		Shifts: []models.Shift{
			{ID: "s1", Name: "Morning", StartTime: "09:00", EndTime: "17:00"},
		},
	}
}

func TestOptimize_FillsDemandedSlots(t *testing.T) {
	sc := baseContext()
	sc.DemandForecasts = []models.DemandForecast{
		{Date: day(3), ShiftID: "s1", RequiredHeadcount: 2},
	}

	result, err := NewGreedy().Optimize(context.Background(), sc)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	if len(result.Recommendations) != 2 {
		t.Fatalf("Expected 2 recommendations, got %d", len(result.Recommendations))
	}
	if result.Summary.CoverageScore == nil || *result.Summary.CoverageScore != 1.0 {
		t.Errorf("Expected coverage 1.0, got %v", result.Summary.CoverageScore)
	}
	for _, rec := range result.Recommendations {
		if rec.Date != "2025-03-03" {
			t.Errorf("Expected date 2025-03-03, got %s", rec.Date)
		}
		if rec.StartTime != "09:00" || rec.EndTime != "17:00" {
			t.Errorf("Expected shift times on recommendation, got %s-%s", rec.StartTime, rec.EndTime)
		}
	}
}

func TestOptimize_OverlapLeavesSlotUnfilled(t *testing.T) {
	sc := baseContext()
	sc.Employees = sc.Employees[:1]
	sc.Shifts = append(sc.Shifts, models.Shift{
		ID: "s2", Name: "Midday", StartTime: "12:00", EndTime: "20:00",
	})

	result, err := NewGreedy().Optimize(context.Background(), sc)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	if len(result.Recommendations) != 1 {
		t.Fatalf("Expected only 1 recommendation due to overlap, got %d", len(result.Recommendations))
	}
	if len(result.Summary.Warnings) != 1 {
		t.Fatalf("Expected 1 unfilled warning, got %v", result.Summary.Warnings)
	}
	if !strings.Contains(result.Summary.Warnings[0], "unfilled") {
		t.Errorf("Expected unfilled warning, got %q", result.Summary.Warnings[0])
	}
}

func TestOptimize_HardUnavailabilitySkipsEmployee(t *testing.T) {
	sc := baseContext()
	sc.Constraints = []models.Constraint{
		{RuleType: models.RuleUnavailable, IsHardConstraint: true, EmployeeID: "e1", ShiftID: "s1"},
	}

	result, err := NewGreedy().Optimize(context.Background(), sc)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	if len(result.Recommendations) != 1 {
		t.Fatalf("Expected 1 recommendation, got %d", len(result.Recommendations))
	}
	if result.Recommendations[0].EmployeeID != "e2" {
		t.Errorf("Expected e2 to be assigned, got %s", result.Recommendations[0].EmployeeID)
	}
	if result.Summary.ConstraintViolations != 0 {
		t.Errorf("Hard constraints respected should not count as violations, got %d", result.Summary.ConstraintViolations)
	}
}

func TestOptimize_SoftConstraintViolationCounted(t *testing.T) {
	sc := baseContext()
	sc.Employees = sc.Employees[:1]
	sc.Constraints = []models.Constraint{
		{RuleType: models.RuleUnavailable, IsHardConstraint: false, EmployeeID: "e1", ShiftID: "s1"},
	}

	result, err := NewGreedy().Optimize(context.Background(), sc)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	if len(result.Recommendations) != 1 {
		t.Fatalf("Expected soft-blocked employee to still be assigned, got %d recommendations", len(result.Recommendations))
	}
	if result.Summary.ConstraintViolations != 1 {
		t.Errorf("Expected 1 constraint violation, got %d", result.Summary.ConstraintViolations)
	}
}

func TestOptimize_MaxWeeklyHoursLimit(t *testing.T) {
	sc := baseContext()
	sc.Employees = sc.Employees[:1]
	sc.DateRange = models.DateRange{Start: day(3), End: day(4)}
	sc.FatigueRules = []models.FatigueRule{{MaxWeeklyHours: 10}}

	result, err := NewGreedy().Optimize(context.Background(), sc)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	// One 8h shift fits under 10h, a second one would not
	if len(result.Recommendations) != 1 {
		t.Fatalf("Expected 1 recommendation under weekly limit, got %d", len(result.Recommendations))
	}
	if len(result.Summary.Warnings) != 1 || !strings.Contains(result.Summary.Warnings[0], "weekly hour limit") {
		t.Errorf("Expected weekly hour limit warning, got %v", result.Summary.Warnings)
	}
}

func TestOptimize_MinRestBetweenShifts(t *testing.T) {
	sc := baseContext()
	sc.Employees = sc.Employees[:1]
	sc.Shifts = []models.Shift{
		{ID: "s1", Name: "Morning", StartTime: "06:00", EndTime: "12:00"},
		{ID: "s2", Name: "Evening", StartTime: "16:00", EndTime: "22:00"},
	}
	sc.FatigueRules = []models.FatigueRule{{MinRestHours: 8}}

	result, err := NewGreedy().Optimize(context.Background(), sc)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	// Only 4h between shifts, so the second slot must stay open
	if len(result.Recommendations) != 1 {
		t.Fatalf("Expected 1 recommendation with rest rule, got %d", len(result.Recommendations))
	}
	if len(result.Summary.Warnings) != 1 || !strings.Contains(result.Summary.Warnings[0], "fatigue") {
		t.Errorf("Expected fatigue warning, got %v", result.Summary.Warnings)
	}
}

func TestOptimize_PreferenceGoalFlipsTieBreak(t *testing.T) {
	sc := baseContext()
	sc.Goal = models.GoalPreference
	sc.Preferences = []models.Preference{
		{EmployeeID: "e2", ShiftID: "s1", Weight: 3},
	}

	result, err := NewGreedy().Optimize(context.Background(), sc)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	if len(result.Recommendations) != 1 {
		t.Fatalf("Expected 1 recommendation, got %d", len(result.Recommendations))
	}
	// Without the preference the id tie-break picks e1
	if result.Recommendations[0].EmployeeID != "e2" {
		t.Errorf("Expected preferred employee e2, got %s", result.Recommendations[0].EmployeeID)
	}
}

func TestOptimize_ExistingAssignmentsBlockOverlap(t *testing.T) {
	sc := baseContext()
	sc.ExistingAssignments = []models.ExistingAssignment{
		{EmployeeID: "e1", ShiftID: "s1", EffectiveDate: day(1)},
	}

	result, err := NewGreedy().Optimize(context.Background(), sc)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	if len(result.Recommendations) != 1 {
		t.Fatalf("Expected 1 recommendation, got %d", len(result.Recommendations))
	}
	// e1 is already booked on s1 by the standing roster
	if result.Recommendations[0].EmployeeID != "e2" {
		t.Errorf("Expected e2 for the open seat, got %s", result.Recommendations[0].EmployeeID)
	}
}

func TestOptimize_Deterministic(t *testing.T) {
	sc := baseContext()
	sc.DateRange = models.DateRange{Start: day(3), End: day(9)}
	sc.Shifts = append(sc.Shifts, models.Shift{
		ID: "s2", Name: "Evening", StartTime: "17:00", EndTime: "23:00",
	})

	g := NewGreedy()
	first, err := g.Optimize(context.Background(), sc)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}
	second, err := g.Optimize(context.Background(), sc)
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}

	if len(first.Recommendations) != len(second.Recommendations) {
		t.Fatalf("Expected identical runs, got %d vs %d recommendations",
			len(first.Recommendations), len(second.Recommendations))
	}
	for i := range first.Recommendations {
		a, b := first.Recommendations[i], second.Recommendations[i]
		if a.EmployeeID != b.EmployeeID || a.ShiftID != b.ShiftID || a.Date != b.Date {
			t.Errorf("Run mismatch at %d: %+v vs %+v", i, a, b)
		}
	}
}

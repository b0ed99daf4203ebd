package orchestrator

import (
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

// BuildContext shapes one aggregation pass into the canonical scheduling
// context. Pure function, no I/O: it normalizes records and enforces the
// invariant that assignments and preferences only reference employee and
// shift ids fetched in the same pass. The result holds plain data only, so
// it can cross a process boundary unchanged.
func BuildContext(data *AggregatedData, window models.DateRange, goal models.OptimizationGoal) models.SchedulingContext {
	employees := make([]models.Employee, 0, len(data.Employees))
	for _, e := range data.Employees {
		if e.ID == "" {
			continue
		}
		if e.DisplayName == "" {
			e.DisplayName = e.ExternalID
		}
		if e.DisplayName == "" {
			e.DisplayName = e.ID
		}
		employees = append(employees, e)
	}

	shifts := make([]models.Shift, 0, len(data.Shifts))
	for _, s := range data.Shifts {
		if s.ID == "" || s.StartTime == "" || s.EndTime == "" {
			continue
		}
		if s.Name == "" {
			s.Name = s.Code
		}
		shifts = append(shifts, s)
	}

	empIDs := make(map[string]bool, len(employees))
	for _, e := range employees {
		empIDs[e.ID] = true
	}
	shiftIDs := make(map[string]bool, len(shifts))
	for _, s := range shifts {
		shiftIDs[s.ID] = true
	}

	assignments := make([]models.ExistingAssignment, 0, len(data.ExistingAssignments))
	for _, a := range data.ExistingAssignments {
		if empIDs[a.EmployeeID] && shiftIDs[a.ShiftID] {
			assignments = append(assignments, a)
		}
	}

	preferences := make([]models.Preference, 0, len(data.Preferences))
	for _, p := range data.Preferences {
		if !empIDs[p.EmployeeID] {
			continue
		}
		if p.ShiftID != "" && !shiftIDs[p.ShiftID] {
			continue
		}
		preferences = append(preferences, p)
	}

	return models.SchedulingContext{
		DateRange:           window,
		Goal:                goal,
		Employees:           employees,
		Shifts:              shifts,
		ExistingAssignments: assignments,
		Preferences:         preferences,
		Constraints:         data.Constraints,
		DemandForecasts:     data.DemandForecasts,
		FatigueRules:        data.FatigueRules,
	}
}

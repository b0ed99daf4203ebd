package orchestrator

import (
	"fmt"
	"time"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

const defaultConfidence = 0.8

// Validate turns raw optimizer output into persistable recommendations.
// A raw recommendation is accepted only when both ids exist in the context's
// employee/shift sets; missing times default from the referenced shift,
// missing confidence and reasoning get neutral defaults. Rejects never abort
// the run; they are counted into the run summary's warnings.
func Validate(raw []models.RawRecommendation, sc *models.SchedulingContext, runID string) ([]models.Recommendation, []models.Rejection) {
	empIDs := sc.EmployeeIDs()
	shiftsByID := sc.ShiftsByID()

	var validated []models.Recommendation
	var rejected []models.Rejection

	reject := func(r models.RawRecommendation, format string, args ...any) {
		rejected = append(rejected, models.Rejection{Reason: fmt.Sprintf(format, args...), Raw: r})
	}

	for _, r := range raw {
		if !empIDs[r.EmployeeID] {
			reject(r, "unknown employee id %q", r.EmployeeID)
			continue
		}
		shift, ok := shiftsByID[r.ShiftID]
		if !ok {
			reject(r, "unknown shift id %q", r.ShiftID)
			continue
		}
		if _, err := time.Parse("2006-01-02", r.Date); err != nil {
			reject(r, "unparseable date %q", r.Date)
			continue
		}

		rec := models.Recommendation{
			RunID:           runID,
			EmployeeID:      r.EmployeeID,
			ShiftID:         r.ShiftID,
			RecommendedDate: r.Date,
			StartTime:       r.StartTime,
			EndTime:         r.EndTime,
			ConfidenceScore: r.ConfidenceScore,
			Reasoning:       r.Reasoning,
		}
		if rec.StartTime == "" {
			rec.StartTime = shift.StartTime
		}
		if rec.EndTime == "" {
			rec.EndTime = shift.EndTime
		}
		if rec.ConfidenceScore <= 0 {
			rec.ConfidenceScore = defaultConfidence
		} else if rec.ConfidenceScore > 1 {
			rec.ConfidenceScore = 1
		}
		if rec.Reasoning == "" {
			rec.Reasoning = "optimizer-assigned"
		}

		validated = append(validated, rec)
	}

	return validated, rejected
}

// composeSummary folds optimizer output, validation rejects and degraded
// input warnings into the persisted run summary. When the optimizer omits a
// coverage score one is computed locally as distinct recommended
// (shift, date) pairs over shifts x days; a missing preference score stays
// unset.
func composeSummary(validated []models.Recommendation, rejected []models.Rejection,
	opt models.OptimizerSummary, sc *models.SchedulingContext, degraded []string) models.RunSummary {

	warnings := make([]string, 0, len(degraded)+len(opt.Warnings)+len(rejected))
	warnings = append(warnings, degraded...)
	warnings = append(warnings, opt.Warnings...)
	for _, rej := range rejected {
		warnings = append(warnings, fmt.Sprintf("dropped recommendation (%s)", rej.Reason))
	}

	summary := models.RunSummary{
		TotalRecommendations: len(validated),
		CoverageScore:        opt.CoverageScore,
		PreferenceScore:      opt.PreferenceScore,
		ConstraintViolations: opt.ConstraintViolations,
		Warnings:             warnings,
	}

	if summary.CoverageScore == nil {
		if total := len(sc.Shifts) * len(sc.DateRange.Days()); total > 0 {
			covered := make(map[string]bool, len(validated))
			for _, rec := range validated {
				covered[rec.ShiftID+"|"+rec.RecommendedDate] = true
			}
			score := float64(len(covered)) / float64(total)
			summary.CoverageScore = &score
		}
	}

	return summary
}

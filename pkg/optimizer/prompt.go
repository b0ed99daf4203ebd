package optimizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

// policyPreamble is the fixed system prompt pairing constraint semantics with
// the optimization-goal definitions. It never varies per run; all run data
// travels in the user prompt.
const policyPreamble = `You are a workforce shift-scheduling optimizer.
You receive one JSON scheduling context describing employees, shift templates,
existing assignments, preferences, constraints, demand forecasts and fatigue
rules for a bounded date window.

Rules:
- Constraints with "is_hard_constraint": true must never be violated.
- Soft constraints and preferences should be respected when possible; count
  each one you had to override in summary.constraint_violations.
- Fatigue rules limit consecutive working days, weekly hours and minimum rest
  between shifts for every employee.
- Never assign an employee to two overlapping shifts on the same date.
- Only reference employee and shift ids that appear in the context.

Optimization goals:
- "cost": minimise total scheduled hours while meeting demand.
- "coverage": fill as many demanded slots as possible.
- "preference": maximise satisfied employee preferences.
- "balanced": trade all three off evenly.`

// responseShape documents the exact JSON the model must return.
const responseShape = `{
  "recommendations": [
    {
      "employee_id": string,
      "employee_name": string,
      "shift_id": string,
      "shift_name": string,
      "date": "YYYY-MM-DD",
      "start_time": "HH:MM",
      "end_time": "HH:MM",
      "confidence_score": number,   // 0..1
      "reasoning": string
    }
  ],
  "summary": {
    "coverage_score": number,       // 0..1, optional
    "preference_score": number,     // 0..1, optional
    "estimated_weekly_hours": number, // optional
    "constraint_violations": number,
    "warnings": [string]
  }
}`

// BuildUserPrompt serializes the scheduling context into the user half of the
// optimizer exchange, with output instructions appended.
func BuildUserPrompt(sc *models.SchedulingContext) (string, error) {
	payload, err := json.Marshal(sc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize scheduling context: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Scheduling context:\n")
	sb.Write(payload)
	sb.WriteString("\n\nReturn ONLY one JSON object matching this exact structure:\n")
	sb.WriteString(responseShape)
	sb.WriteString("\n\nIMPORTANT:\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")
	sb.WriteString(fmt.Sprintf("- Schedule within %s through %s inclusive.\n",
		sc.DateRange.Start.Format("2006-01-02"), sc.DateRange.End.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("- Optimization goal: %s.\n", sc.Goal))
	return sb.String(), nil
}

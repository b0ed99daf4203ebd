package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
)

// Greedy is the deterministic, in-process optimizer: coverage-first greedy
// assignment with least-loaded tie-breaking and goal-weighted preference
// scoring. With Shuffle off (the default) its output is fully reproducible.
type Greedy struct {
	// Shuffle enables the multi-pass mode: slots are assigned in random
	// order several times and the pass with the best coverage wins.
	Shuffle bool
	// Passes bounds the shuffle mode; ignored when Shuffle is off.
	Passes int
}

// NewGreedy returns the solver in its deterministic configuration.
func NewGreedy() *Greedy {
	return &Greedy{}
}

// Name identifies the solver.
func (g *Greedy) Name() string {
	return "greedy-v1"
}

type interval struct {
	start time.Time
	end   time.Time
}

func (iv interval) overlaps(other interval) bool {
	return iv.start.Before(other.end) && other.start.Before(iv.end)
}

// slot is one open seat: a shift on a date that demand says must be filled.
type slot struct {
	date  time.Time
	shift models.Shift
}

// empState tracks an employee's accumulating load during one pass.
type empState struct {
	emp         models.Employee
	busy        []interval
	weeklyHours map[int]float64
	daysWorked  map[string]bool
}

// limits is the merged fatigue/constraint envelope applied to every check.
type limits struct {
	maxConsecutiveDays int
	minRestHours       float64
	maxWeeklyHours     float64
	perEmployeeWeekly  map[string]float64
	// unavailability keys: "emp|shift", "emp|dow:N", "emp|*"
	hardUnavailable map[string]bool
	softUnavailable map[string]bool
}

// Optimize assigns employees to demanded slots across the window.
func (g *Greedy) Optimize(ctx context.Context, sc *models.SchedulingContext) (*models.OptimizerResult, error) {
	slots := buildSlots(sc)

	passes := 1
	if g.Shuffle {
		passes = g.Passes
		if passes <= 0 {
			passes = 8
		}
	}

	var best *models.OptimizerResult
	bestFilled := -1
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for pass := 0; pass < passes; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		order := append([]slot(nil), slots...)
		if g.Shuffle {
			r.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		result, filled := g.assign(sc, order, len(slots))
		if filled > bestFilled {
			best = result
			bestFilled = filled
		}
		if bestFilled == len(slots) {
			break
		}
	}

	return best, nil
}

// assign runs one greedy pass over the given slot order.
func (g *Greedy) assign(sc *models.SchedulingContext, order []slot, totalSlots int) (*models.OptimizerResult, int) {
	lim := mergeLimits(sc)
	shiftsByID := sc.ShiftsByID()

	states := make(map[string]*empState, len(sc.Employees))
	for _, e := range sc.Employees {
		states[e.ID] = &empState{
			emp:         e,
			weeklyHours: make(map[int]float64),
			daysWorked:  make(map[string]bool),
		}
	}

	// Standing assignments consume employee time before any new seat is
	// offered.
	for _, day := range sc.DateRange.Days() {
		for _, asgn := range sc.ExistingAssignments {
			if !assignmentActive(asgn, day) {
				continue
			}
			sh, ok := shiftsByID[asgn.ShiftID]
			if !ok {
				continue
			}
			if st, ok := states[asgn.EmployeeID]; ok {
				st.book(shiftInterval(sh, day), sh.DurationHours(), day)
			}
		}
	}

	var (
		recs       []models.RawRecommendation
		warnings   []string
		violations int
		filled     int
		totalHours float64
	)

	for _, sl := range order {
		dur := sl.shift.DurationHours()
		iv := shiftInterval(sl.shift, sl.date)
		dateKey := sl.date.Format("2006-01-02")
		dow := int(sl.date.Weekday())

		var best *empState
		var bestScore float64
		var bestSoftHits int
		feasible := 0

		atLimit, overlapping, unavailable, fatigued := 0, 0, 0, 0

		for _, st := range sortedStates(states) {
			if lim.blockedHard(st.emp.ID, sl.shift.ID, dow) {
				unavailable++
				continue
			}
			if st.overlapsAny(iv) {
				overlapping++
				continue
			}
			if !st.fitsWeekly(sl.date, dur, lim) {
				atLimit++
				continue
			}
			if !st.fitsFatigue(sl.date, iv, lim) {
				fatigued++
				continue
			}

			feasible++
			softHits := 0
			if lim.blockedSoft(st.emp.ID, sl.shift.ID, dow) {
				softHits++
			}
			score := g.score(sc, st, sl, dur, softHits)
			if best == nil || score > bestScore || (score == bestScore && st.emp.ID < best.emp.ID) {
				best = st
				bestScore = score
				bestSoftHits = softHits
			}
		}

		if best == nil {
			warnings = append(warnings, conflictWarning(sl, dateKey, atLimit, overlapping, unavailable, fatigued))
			continue
		}

		best.book(iv, dur, sl.date)
		violations += bestSoftHits
		filled++
		totalHours += dur

		recs = append(recs, models.RawRecommendation{
			EmployeeID:      best.emp.ID,
			EmployeeName:    best.emp.DisplayName,
			ShiftID:         sl.shift.ID,
			ShiftName:       sl.shift.Name,
			Date:            dateKey,
			StartTime:       sl.shift.StartTime,
			EndTime:         sl.shift.EndTime,
			ConfidenceScore: confidence(feasible),
			Reasoning:       reasoning(best, sl, feasible, prefWeight(sc, best.emp.ID, sl.shift.ID, dow)),
		})
	}

	summary := models.OptimizerSummary{
		ConstraintViolations: violations,
		Warnings:             warnings,
	}
	if totalSlots > 0 {
		coverage := float64(filled) / float64(totalSlots)
		summary.CoverageScore = &coverage
	}
	if len(sc.Employees) > 0 {
		weeks := float64(len(sc.DateRange.Days())) / 7.0
		if weeks < 1 {
			weeks = 1
		}
		weekly := totalHours / float64(len(sc.Employees)) / weeks
		summary.EstimatedWeeklyHours = &weekly
	}

	return &models.OptimizerResult{Recommendations: recs, Summary: summary}, filled
}

// score ranks a feasible employee for a slot. Least-loaded wins by default;
// the goal shifts how strongly preferences weigh in.
func (g *Greedy) score(sc *models.SchedulingContext, st *empState, sl slot, dur float64, softHits int) float64 {
	week := weekKey(sl.date)
	score := -st.weeklyHours[week]

	prefFactor := 1.0
	switch sc.Goal {
	case models.GoalPreference:
		prefFactor = 3.0
	case models.GoalBalanced:
		prefFactor = 1.5
	case models.GoalCost, models.GoalCoverage:
		prefFactor = 0.5
	}
	score += prefFactor * prefWeight(sc, st.emp.ID, sl.shift.ID, int(sl.date.Weekday()))

	// Breaking a soft constraint is allowed but expensive.
	score -= 5.0 * float64(softHits)
	return score
}

func buildSlots(sc *models.SchedulingContext) []slot {
	// Forecast lookup: exact (date, shift) first, then day-wide, else one
	// seat per shift per day.
	exact := make(map[string]int)
	dayWide := make(map[string]int)
	for _, f := range sc.DemandForecasts {
		key := f.Date.Format("2006-01-02")
		if f.ShiftID != "" {
			exact[key+"|"+f.ShiftID] = f.RequiredHeadcount
		} else {
			dayWide[key] = f.RequiredHeadcount
		}
	}

	shifts := append([]models.Shift(nil), sc.Shifts...)
	sort.Slice(shifts, func(i, j int) bool { return shifts[i].ID < shifts[j].ID })

	var slots []slot
	for _, day := range sc.DateRange.Days() {
		key := day.Format("2006-01-02")
		for _, sh := range shifts {
			needed := 1
			if n, ok := exact[key+"|"+sh.ID]; ok {
				needed = n
			} else if n, ok := dayWide[key]; ok {
				needed = n
			}
			for i := 0; i < needed; i++ {
				slots = append(slots, slot{date: day, shift: sh})
			}
		}
	}
	return slots
}

func mergeLimits(sc *models.SchedulingContext) limits {
	lim := limits{
		perEmployeeWeekly: make(map[string]float64),
		hardUnavailable:   make(map[string]bool),
		softUnavailable:   make(map[string]bool),
	}

	for _, fr := range sc.FatigueRules {
		if fr.MaxConsecutiveDays > 0 && (lim.maxConsecutiveDays == 0 || fr.MaxConsecutiveDays < lim.maxConsecutiveDays) {
			lim.maxConsecutiveDays = fr.MaxConsecutiveDays
		}
		if fr.MinRestHours > lim.minRestHours {
			lim.minRestHours = fr.MinRestHours
		}
		if fr.MaxWeeklyHours > 0 && (lim.maxWeeklyHours == 0 || fr.MaxWeeklyHours < lim.maxWeeklyHours) {
			lim.maxWeeklyHours = fr.MaxWeeklyHours
		}
	}

	for _, c := range sc.Constraints {
		switch c.RuleType {
		case models.RuleUnavailable:
			key := unavailKey(c)
			if c.IsHardConstraint {
				lim.hardUnavailable[key] = true
			} else {
				lim.softUnavailable[key] = true
			}
		case models.RuleMaxWeeklyHours:
			if c.EmployeeID != "" && c.LimitHours > 0 {
				lim.perEmployeeWeekly[c.EmployeeID] = c.LimitHours
			} else if c.LimitHours > 0 && (lim.maxWeeklyHours == 0 || c.LimitHours < lim.maxWeeklyHours) {
				lim.maxWeeklyHours = c.LimitHours
			}
		case models.RuleRequiredRest:
			if c.LimitHours > lim.minRestHours {
				lim.minRestHours = c.LimitHours
			}
		}
		// Unknown rule types are only meaningful to inference-backed
		// optimizers; the solver passes over them.
	}
	return lim
}

func unavailKey(c models.Constraint) string {
	switch {
	case c.ShiftID != "":
		return c.EmployeeID + "|" + c.ShiftID
	case c.DayOfWeek != nil:
		return fmt.Sprintf("%s|dow:%d", c.EmployeeID, *c.DayOfWeek)
	default:
		return c.EmployeeID + "|*"
	}
}

func (l limits) blockedHard(empID, shiftID string, dow int) bool {
	return l.hardUnavailable[empID+"|"+shiftID] ||
		l.hardUnavailable[fmt.Sprintf("%s|dow:%d", empID, dow)] ||
		l.hardUnavailable[empID+"|*"]
}

func (l limits) blockedSoft(empID, shiftID string, dow int) bool {
	return l.softUnavailable[empID+"|"+shiftID] ||
		l.softUnavailable[fmt.Sprintf("%s|dow:%d", empID, dow)] ||
		l.softUnavailable[empID+"|*"]
}

func (st *empState) book(iv interval, hours float64, day time.Time) {
	st.busy = append(st.busy, iv)
	st.weeklyHours[weekKey(day)] += hours
	st.daysWorked[day.Format("2006-01-02")] = true
}

func (st *empState) overlapsAny(iv interval) bool {
	for _, existing := range st.busy {
		if existing.overlaps(iv) {
			return true
		}
	}
	return false
}

func (st *empState) fitsWeekly(day time.Time, dur float64, lim limits) bool {
	limit := lim.maxWeeklyHours
	if per, ok := lim.perEmployeeWeekly[st.emp.ID]; ok && (limit == 0 || per < limit) {
		limit = per
	}
	if limit == 0 {
		return true
	}
	return st.weeklyHours[weekKey(day)]+dur <= limit
}

func (st *empState) fitsFatigue(day time.Time, iv interval, lim limits) bool {
	if lim.maxConsecutiveDays > 0 {
		streak := 1
		for d := day.AddDate(0, 0, -1); st.daysWorked[d.Format("2006-01-02")]; d = d.AddDate(0, 0, -1) {
			streak++
		}
		for d := day.AddDate(0, 0, 1); st.daysWorked[d.Format("2006-01-02")]; d = d.AddDate(0, 0, 1) {
			streak++
		}
		if streak > lim.maxConsecutiveDays {
			return false
		}
	}

	if lim.minRestHours > 0 {
		for _, existing := range st.busy {
			if !existing.end.After(iv.start) && iv.start.Sub(existing.end).Hours() < lim.minRestHours {
				return false
			}
			if !iv.end.After(existing.start) && existing.start.Sub(iv.end).Hours() < lim.minRestHours {
				return false
			}
		}
	}
	return true
}

func sortedStates(states map[string]*empState) []*empState {
	out := make([]*empState, 0, len(states))
	for _, st := range states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].emp.ID < out[j].emp.ID })
	return out
}

func assignmentActive(asgn models.ExistingAssignment, day time.Time) bool {
	if asgn.EffectiveDate.After(day) {
		return false
	}
	return asgn.EndDate == nil || !asgn.EndDate.Before(day)
}

func shiftInterval(sh models.Shift, day time.Time) interval {
	start := atTime(day, sh.StartTime)
	end := atTime(day, sh.EndTime)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return interval{start: start, end: end}
}

func atTime(day time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}

func weekKey(day time.Time) int {
	year, week := day.ISOWeek()
	return year*100 + week
}

func prefWeight(sc *models.SchedulingContext, empID, shiftID string, dow int) float64 {
	var weight float64
	for _, p := range sc.Preferences {
		if p.EmployeeID != empID {
			continue
		}
		if p.ShiftID != "" && p.ShiftID != shiftID {
			continue
		}
		if p.DayOfWeek != nil && *p.DayOfWeek != dow {
			continue
		}
		weight += p.Weight
	}
	return weight
}

func confidence(feasible int) float64 {
	c := 0.65 + 0.05*float64(feasible)
	if c > 0.95 {
		c = 0.95
	}
	return c
}

func reasoning(st *empState, sl slot, feasible int, pref float64) string {
	week := weekKey(sl.date)
	base := fmt.Sprintf("least-loaded eligible employee (%.1fh scheduled this week)", st.weeklyHours[week])
	if feasible == 1 {
		base = "only eligible employee for this slot"
	}
	if pref != 0 {
		base += fmt.Sprintf("; preference weight %+.1f", pref)
	}
	return base
}

func conflictWarning(sl slot, dateKey string, atLimit, overlapping, unavailable, fatigued int) string {
	var reasons []string
	if atLimit > 0 {
		reasons = append(reasons, fmt.Sprintf("%d at weekly hour limit", atLimit))
	}
	if overlapping > 0 {
		reasons = append(reasons, fmt.Sprintf("%d with overlapping shifts", overlapping))
	}
	if unavailable > 0 {
		reasons = append(reasons, fmt.Sprintf("%d unavailable", unavailable))
	}
	if fatigued > 0 {
		reasons = append(reasons, fmt.Sprintf("%d blocked by fatigue rules", fatigued))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no employees in scope")
	}
	return fmt.Sprintf("unfilled: shift %s on %s (%s)", sl.shift.ID, dateKey, strings.Join(reasons, ", "))
}

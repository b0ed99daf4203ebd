// Package orchestrator runs one scheduling request through the full pipeline:
// aggregate organizational data, build the immutable context, delegate to the
// configured optimizer, validate its output, and persist the results — all
// bracketed by run-status transitions so a terminal state is always recorded.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/models"
	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/optimizer"
)

const defaultOptimizeTimeout = 2 * time.Minute

// Orchestrator executes scheduling runs. Every dependency is injected;
// instances are safe for concurrent runs because all mutable state is scoped
// to one Execute call.
type Orchestrator struct {
	store DataStore
	opt   optimizer.Optimizer
	log   *zap.Logger

	// OptimizeTimeout bounds the optimizer call only; the rest of the
	// pipeline runs under the caller's context.
	OptimizeTimeout time.Duration
}

// New wires an orchestrator.
func New(store DataStore, opt optimizer.Optimizer, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:           store,
		opt:             opt,
		log:             log,
		OptimizeTimeout: defaultOptimizeTimeout,
	}
}

// Result is the synchronous acknowledgment returned to the trigger surface.
type Result struct {
	RunID                string            `json:"run_id"`
	TotalRecommendations int               `json:"total_recommendations"`
	Summary              models.RunSummary `json:"summary"`
}

// Execute runs one scheduling request to a terminal state. On any fatal
// error — including a panic anywhere in the pipeline — the run record gets a
// best-effort failed write before the error is returned; that write's own
// failure is logged and swallowed so nothing escapes unhandled.
func (o *Orchestrator) Execute(ctx context.Context, req models.RunRequest) (*Result, error) {
	log := o.log.With(zap.String("run_id", req.RunID), zap.String("company_id", req.CompanyID))

	result, err := o.execute(ctx, req, log)
	if err != nil {
		o.failRun(context.WithoutCancel(ctx), req.RunID, err, log)
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, req models.RunRequest, log *zap.Logger) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("scheduling pipeline panicked", zap.Any("panic", r))
			result = nil
			err = fmt.Errorf("unhandled panic in scheduling pipeline: %v", r)
		}
	}()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if err := o.store.MarkRunRunning(ctx, req.RunID, o.opt.Name(), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("%w: mark running: %v", ErrPersistence, err)
	}
	log.Info("run started",
		zap.String("goal", string(req.Goal)),
		zap.String("optimizer", o.opt.Name()),
		zap.Time("window_start", req.StartDate),
		zap.Time("window_end", req.EndDate))

	data, err := o.aggregate(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Info("aggregation complete",
		zap.Int("employees", len(data.Employees)),
		zap.Int("shifts", len(data.Shifts)),
		zap.Int("existing_assignments", len(data.ExistingAssignments)),
		zap.Int("degraded_collections", len(data.Warnings)))

	window := models.DateRange{Start: req.StartDate, End: req.EndDate}
	sc := BuildContext(data, window, req.Goal)

	optCtx, cancel := context.WithTimeout(ctx, o.OptimizeTimeout)
	defer cancel()
	optResult, err := o.opt.Optimize(optCtx, &sc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, optimizer.ErrTimeout) {
			err = fmt.Errorf("%w: %v", optimizer.ErrTimeout, err)
		}
		var malformed *optimizer.MalformedOutputError
		if errors.As(err, &malformed) {
			// Keep the raw output reachable for diagnosis.
			log.Error("optimizer returned unparseable output",
				zap.String("reason", malformed.Reason),
				zap.String("raw_output", malformed.Raw))
		}
		return nil, err
	}

	validated, rejected := Validate(optResult.Recommendations, &sc, req.RunID)
	for _, rej := range rejected {
		log.Warn("recommendation rejected", zap.String("reason", rej.Reason))
	}

	summary := composeSummary(validated, rejected, optResult.Summary, &sc, data.Warnings)

	if err := o.store.SaveRecommendations(ctx, validated); err != nil {
		return nil, fmt.Errorf("%w: save recommendations: %v", ErrPersistence, err)
	}
	if err := o.store.MarkRunCompleted(ctx, req.RunID, summary, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("%w: mark completed: %v", ErrPersistence, err)
	}

	log.Info("run completed",
		zap.Int("recommendations", len(validated)),
		zap.Int("rejected", len(rejected)),
		zap.Int("warnings", len(summary.Warnings)))

	return &Result{
		RunID:                req.RunID,
		TotalRecommendations: len(validated),
		Summary:              summary,
	}, nil
}

// failRun records the terminal failed state. Secondary errors from this
// write are logged only — the original failure must surface, not be masked.
func (o *Orchestrator) failRun(ctx context.Context, runID string, cause error, log *zap.Logger) {
	if runID == "" {
		return
	}
	if err := o.store.MarkRunFailed(ctx, runID, cause.Error(), time.Now().UTC()); err != nil {
		log.Error("failed to record run failure", zap.Error(err), zap.NamedError("cause", cause))
		return
	}
	log.Warn("run failed", zap.Error(cause))
}

func validateRequest(req models.RunRequest) error {
	switch {
	case req.RunID == "":
		return fmt.Errorf("%w: run id is required", ErrBadRequest)
	case req.CompanyID == "":
		return fmt.Errorf("%w: company id is required", ErrBadRequest)
	case !req.Goal.Valid():
		return fmt.Errorf("%w: unknown optimization goal %q", ErrBadRequest, req.Goal)
	case req.StartDate.IsZero() || req.EndDate.IsZero():
		return fmt.Errorf("%w: start and end dates are required", ErrBadRequest)
	case req.EndDate.Before(req.StartDate):
		return fmt.Errorf("%w: end date precedes start date", ErrBadRequest)
	}
	return nil
}

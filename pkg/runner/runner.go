package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/google/uuid"
)

// Runner executes workflows step by step on a TreeRunner.
type Runner struct {
	engine            ports.TreeRunner
	logger            *slog.Logger
	continueOnFailure bool
	locker            ports.DistributedLocker
	lockTTL           time.Duration
	observer          func(StepResult)
}

// StepResult is the outcome of one workflow step.
type StepResult struct {
	Step     domain.WorkflowStep `json:"step"`
	Outcome  domain.Outcome      `json:"outcome"`
	Duration time.Duration       `json:"duration"`
	// Skipped is set on steps never started because an earlier step ended
	// the workflow.
	Skipped bool `json:"skipped,omitempty"`
}

// Report summarizes a workflow run.
type Report struct {
	Workflow string         `json:"workflow"`
	RunID    string         `json:"run_id"`
	Steps    []StepResult   `json:"steps"`
	Outcome  domain.Outcome `json:"outcome"`
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"duration"`
}

// New creates a Runner on engine.
func New(engine ports.TreeRunner, opts ...Option) *Runner {
	r := &Runner{
		engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the workflow with the given title.
// The error is non-nil only for an unknown workflow or a lock failure;
// step failures and cancellations are reported in the Report.
func (r *Runner) Run(ctx context.Context, title string) (*Report, error) {
	wf, err := r.engine.Library().WorkflowByTitle(title)
	if err != nil {
		return nil, err
	}

	runID, ok := domain.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = domain.WithRunID(ctx, runID)
	}

	report := &Report{
		Workflow: wf.Title,
		RunID:    runID,
		Started:  time.Now(),
		Outcome:  domain.Success(),
	}
	logger := r.logger.With("workflow", wf.Title, "run_id", runID)
	logger.Info("workflow started", "steps", len(wf.Workflow))

	stopped := false
	for _, step := range wf.Workflow {
		if stopped {
			report.Steps = append(report.Steps, StepResult{Step: step, Skipped: true})
			continue
		}

		res, err := r.runStep(ctx, step)
		if err != nil {
			return nil, err
		}
		report.Steps = append(report.Steps, res)
		if r.observer != nil {
			r.observer(res)
		}
		logger.Info("step finished",
			"step", step.Name,
			"status", res.Outcome.Status.String(),
			"reason", res.Outcome.Reason,
			"duration", res.Duration,
		)

		switch {
		case res.Outcome.IsCancelled():
			report.Outcome = res.Outcome
			stopped = true
		case res.Outcome.IsFailure():
			if report.Outcome.IsSuccess() {
				report.Outcome = res.Outcome
			}
			stopped = !r.continueOnFailure
		}
	}

	report.Duration = time.Since(report.Started)
	logger.Info("workflow finished", "status", report.Outcome.Status.String(), "duration", report.Duration)
	return report, nil
}

func (r *Runner) runStep(ctx context.Context, step domain.WorkflowStep) (StepResult, error) {
	res := StepResult{Step: step}
	start := time.Now()

	if r.locker != nil {
		unlock, out, err := r.lockParticipants(ctx, step.Name)
		if err != nil {
			return res, err
		}
		if out != nil {
			res.Outcome = *out
			res.Duration = time.Since(start)
			return res, nil
		}
		defer unlock()
	}

	out, err := r.engine.RunTree(ctx, step.Name)
	if err != nil {
		return res, fmt.Errorf("step %q: %w", step.Name, err)
	}
	res.Outcome = out
	res.Duration = time.Since(start)
	return res, nil
}

// lockParticipants takes the module locks of a tree. A cancelled wait is
// reported as a Cancelled outcome rather than an error.
func (r *Runner) lockParticipants(ctx context.Context, treeName string) (func(), *domain.Outcome, error) {
	tree, err := r.engine.Library().TreeByName(treeName)
	if err != nil {
		return nil, nil, fmt.Errorf("step %q: %w", treeName, err)
	}

	keys := make([]string, 0, len(tree.Participants))
	for _, p := range tree.Participants {
		keys = append(keys, "module:"+p)
	}
	// Fixed order prevents lock-order deadlocks between runners.
	sort.Strings(keys)

	var unlocks []ports.UnlockFunc
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			if err := unlocks[i](context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("unlock failed", "tree", treeName, "error", err)
			}
		}
	}

	for _, key := range keys {
		unlock, err := r.locker.Lock(ctx, key, r.lockTTL)
		if err != nil {
			release()
			if ctxErr := ctx.Err(); ctxErr != nil {
				out := domain.Cancelled(ctxErr.Error())
				return nil, &out, nil
			}
			return nil, nil, fmt.Errorf("lock %s: %w", key, err)
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil, nil
}

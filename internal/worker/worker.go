// Package worker starts summarization runs on a fixed interval.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yangwenmai/mailbrief/internal/engine"
	"github.com/yangwenmai/mailbrief/internal/model"
)

// Runner executes one summarization run.
type Runner interface {
	Run(ctx context.Context, cred model.Credential) (*model.PipelineResult, error)
}

// Worker runs the pipeline every interval until its context is cancelled.
// A tick that finds a run already in progress is skipped.
type Worker struct {
	runner   Runner
	interval time.Duration
	cred     model.Credential

	mu          sync.Mutex
	lastFailure *model.RunFailure
}

// New creates a new Worker. Scheduled runs carry cred, which is usually empty.
func New(runner Runner, interval time.Duration, cred model.Credential) *Worker {
	return &Worker{runner: runner, interval: interval, cred: cred}
}

// Start begins the schedule. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("scheduler started", "interval", w.interval.String())
	for {
		if !w.sleep(ctx) {
			slog.Info("scheduler stopped")
			return
		}
		w.tick(ctx)
	}
}

func (w *Worker) tick(ctx context.Context) {
	result, err := w.runner.Run(ctx, w.cred)
	switch {
	case errors.Is(err, engine.ErrRunInProgress):
		slog.Info("scheduled run skipped, another run is in progress")
	case err != nil:
		f := buildFailure(err)
		w.mu.Lock()
		w.lastFailure = &f
		w.mu.Unlock()
		slog.Error("scheduled run failed", "failure", f.ToJSON())
	default:
		w.mu.Lock()
		w.lastFailure = nil
		w.mu.Unlock()
		slog.Info("scheduled run completed",
			"emails_processed", result.EmailsProcessed,
			"summaries_generated", result.SummariesGenerated)
	}
}

// LastFailure returns the failure of the most recent completed run, or nil
// when it succeeded.
func (w *Worker) LastFailure() *model.RunFailure {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastFailure
}

// sleep waits one interval. It returns false when ctx is done.
func (w *Worker) sleep(ctx context.Context) bool {
	t := time.NewTimer(w.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// stepNamer is implemented by errors that carry a pipeline step name.
type stepNamer interface {
	StepName() string
}

func buildFailure(err error) model.RunFailure {
	step := "unknown"
	var sn stepNamer
	if errors.As(err, &sn) {
		step = sn.StepName()
	}
	return model.NewRunFailure(step, engine.Message(err))
}

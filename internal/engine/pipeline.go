package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yangwenmai/mailbrief/internal/model"
)

// DefaultSettleDelay is the wait between the trigger and summarization that
// lets upstream processing catch up.
const DefaultSettleDelay = 3 * time.Second

// Pipeline orchestrates one run: trigger, settle, summarize, retrieve.
type Pipeline struct {
	trigger   SourceRefresher
	summary   SummaryService
	records   RecordFetcher
	settle    time.Duration
	timeout   time.Duration
	observers []Observer

	running atomic.Bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithSettleDelay sets the wait after the trigger stage. Zero disables it.
func WithSettleDelay(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d >= 0 {
			p.settle = d
		}
	}
}

// WithRunTimeout puts a deadline over the whole run. Zero means none.
func WithRunTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

// WithObserver registers an observer for stage boundaries.
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// NewPipeline creates a pipeline with the given stages.
func NewPipeline(trigger SourceRefresher, summary SummaryService, records RecordFetcher, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		trigger: trigger,
		summary: summary,
		records: records,
		settle:  DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes all stages for cred. Trigger failures are absorbed; a
// summarization or retrieval failure aborts the run with a *StepError and no
// partial result. Overlapping calls get ErrRunInProgress. The run is released
// before RunFinished observers are notified, so an observer reacting to the
// finish can start the next run.
func (p *Pipeline) Run(ctx context.Context, cred model.Credential) (*model.PipelineResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	runID, result, err := p.guarded(ctx, cred)
	p.notify(func(o Observer) { o.RunFinished(runID, result, err) })
	return result, err
}

// guarded runs the stages and releases the guard when it returns.
func (p *Pipeline) guarded(ctx context.Context, cred model.Credential) (string, *model.PipelineResult, error) {
	defer p.running.Store(false)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	runID := uuid.New().String()
	log := slog.With("run_id", runID)
	log.Info("starting summarization run")
	p.notify(func(o Observer) { o.RunStarted(runID) })

	result, err := p.run(ctx, runID, cred)
	if err != nil {
		log.Error("summarization run failed", "error", err)
	} else {
		log.Info("summarization run completed",
			"emails_processed", result.EmailsProcessed,
			"summaries_generated", result.SummariesGenerated,
			"records", len(result.Emails))
	}
	return runID, result, err
}

func (p *Pipeline) run(ctx context.Context, runID string, cred model.Credential) (*model.PipelineResult, error) {
	// Step 1: Trigger. Never fails.
	var trig model.TriggerOutcome
	p.stage(runID, StageTrigger, func() error {
		trig = p.trigger.Trigger(ctx, cred)
		return nil
	})
	slog.Debug("trigger outcome", "run_id", runID, "attempted", trig.Attempted, "skipped", trig.Skipped, "succeeded", trig.Succeeded, "count", trig.Count)

	// Step 2: Settle.
	if err := p.stage(runID, StageSettle, func() error { return sleepCtx(ctx, p.settle) }); err != nil {
		return nil, &StepError{Step: StageSettle, Err: err}
	}

	// Step 3: Summarize.
	var summary *model.SummarizationOutcome
	if err := p.stage(runID, StageSummarize, func() error {
		var err error
		summary, err = p.summary.Summarize(ctx)
		return err
	}); err != nil {
		return nil, &StepError{Step: StageSummarize, Err: err}
	}

	// Step 4: Retrieve.
	var emails []model.SummaryRecord
	if err := p.stage(runID, StageRetrieve, func() error {
		var err error
		emails, err = p.records.FetchRecent(ctx)
		return err
	}); err != nil {
		return nil, &StepError{Step: StageRetrieve, Err: err}
	}

	if summary == nil {
		summary = &model.SummarizationOutcome{}
	}
	result := model.NewPipelineResult(trig, *summary, emails)
	return &result, nil
}

func (p *Pipeline) stage(runID, name string, fn func() error) error {
	p.notify(func(o Observer) { o.StageStarted(runID, name) })
	start := time.Now()
	err := fn()
	d := time.Since(start)
	slog.Debug("stage finished", "run_id", runID, "stage", name, "duration", d.String(), "error", err)
	p.notify(func(o Observer) { o.StageFinished(runID, name, d, err) })
	return err
}

func (p *Pipeline) notify(fn func(Observer)) {
	for _, o := range p.observers {
		fn(o)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

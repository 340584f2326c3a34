// Package runstate tracks the user-visible progress of a summarization run.
package runstate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yangwenmai/mailbrief/internal/engine"
	"github.com/yangwenmai/mailbrief/internal/model"
)

// State is the coarse run state shown to users.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// DefaultResetDelay is how long a success stays visible before the tracker
// returns to idle.
const DefaultResetDelay = 3 * time.Second

// Progress checkpoints.
const (
	ProgressStarted    = 0
	ProgressFetching   = 25
	ProgressProcessing = 50
	ProgressFinalizing = 75
	ProgressDone       = 100
)

const (
	msgStarting   = "Starting email processing..."
	msgFetching   = "Fetching unread emails..."
	msgProcessing = "Processing emails with AI..."
	msgFinalizing = "Finalizing summaries..."
)

// ErrBusy is returned by Begin while a run is processing.
var ErrBusy = errors.New("processing already in progress")

// Snapshot is a point-in-time copy of the tracker.
type Snapshot struct {
	State     State     `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	RunID     string    `json:"runId,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tracker is the run state machine. It implements engine.Observer so a
// pipeline drives it across stage boundaries.
type Tracker struct {
	mu    sync.Mutex
	snap  Snapshot
	prev  Snapshot
	gen   uint64
	reset time.Duration
	now   func() time.Time
}

var _ engine.Observer = (*Tracker)(nil)

// NewTracker creates an idle tracker. A negative resetDelay disables the
// automatic return to idle after success.
func NewTracker(resetDelay time.Duration) *Tracker {
	t := &Tracker{reset: resetDelay, now: time.Now}
	t.snap = Snapshot{State: StateIdle, UpdatedAt: t.now()}
	return t
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Begin moves to processing. It fails with ErrBusy when a run is already
// processing.
func (t *Tracker) Begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.State == StateProcessing {
		return ErrBusy
	}
	t.prev = t.snap
	t.start("")
	return nil
}

// Abort undoes a Begin whose run never started. It has no effect once a
// pipeline run has been adopted. A success shown before Begin is not
// restored, since its reset timer is no longer current.
func (t *Tracker) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.State != StateProcessing || t.snap.RunID != "" {
		return
	}
	t.gen++
	t.snap = t.prev
	if t.snap.State == StateSuccess || t.snap.State == StateProcessing {
		t.snap = Snapshot{State: StateIdle}
	}
	t.snap.UpdatedAt = t.now()
}

// start must be called with mu held.
func (t *Tracker) start(runID string) {
	t.gen++
	t.snap = Snapshot{
		State:     StateProcessing,
		Progress:  ProgressStarted,
		Message:   msgStarting,
		RunID:     runID,
		UpdatedAt: t.now(),
	}
}

// Succeed records a finished run and schedules the return to idle.
func (t *Tracker) Succeed(result *model.PipelineResult) {
	t.succeed("", result)
}

// succeed applies a success for runID. A non-empty runID that is not the
// current run is ignored.
func (t *Tracker) succeed(runID string, result *model.PipelineResult) {
	var processed, generated int
	if result != nil {
		processed, generated = result.EmailsProcessed, result.SummariesGenerated
	}

	t.mu.Lock()
	if !t.current(runID) {
		t.mu.Unlock()
		return
	}
	t.snap.State = StateSuccess
	t.snap.Progress = ProgressDone
	t.snap.Message = fmt.Sprintf("Successfully processed %d emails and generated %d summaries!", processed, generated)
	t.snap.UpdatedAt = t.now()
	gen := t.gen
	t.mu.Unlock()

	if t.reset >= 0 {
		time.AfterFunc(t.reset, func() { t.resetIfCurrent(gen) })
	}
}

// Fail records a failed run. The message omits the stage prefix.
func (t *Tracker) Fail(err error) {
	t.fail("", err)
}

func (t *Tracker) fail(runID string, err error) {
	msg := "An unknown error occurred"
	if err != nil {
		msg = engine.Message(err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.current(runID) {
		return
	}
	t.snap.State = StateError
	t.snap.Message = msg
	t.snap.UpdatedAt = t.now()
}

// current reports whether events for runID apply. It must be called with mu
// held.
func (t *Tracker) current(runID string) bool {
	return runID == "" || t.snap.RunID == "" || t.snap.RunID == runID
}

func (t *Tracker) resetIfCurrent(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen || t.snap.State != StateSuccess {
		return
	}
	t.snap = Snapshot{State: StateIdle, UpdatedAt: t.now()}
}

// advance raises progress. Lower values are ignored.
func (t *Tracker) advance(runID string, progress int, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.State != StateProcessing || (runID != "" && t.snap.RunID != runID) {
		return
	}
	if progress < t.snap.Progress {
		return
	}
	t.snap.Progress = progress
	t.snap.Message = msg
	t.snap.UpdatedAt = t.now()
}

// RunStarted adopts runID when Begin already moved to processing, and starts
// a fresh run otherwise.
func (t *Tracker) RunStarted(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.State == StateProcessing && t.snap.RunID == "" {
		t.snap.RunID = runID
		return
	}
	t.start(runID)
}

func (t *Tracker) StageStarted(runID, stage string) {
	if stage == engine.StageTrigger {
		t.advance(runID, ProgressFetching, msgFetching)
	}
}

func (t *Tracker) StageFinished(runID, stage string, _ time.Duration, err error) {
	if err != nil {
		return
	}
	switch stage {
	case engine.StageTrigger:
		t.advance(runID, ProgressProcessing, msgProcessing)
	case engine.StageSummarize:
		t.advance(runID, ProgressFinalizing, msgFinalizing)
	}
}

// RunFinished records the outcome of runID. A finish for a run that has
// already been superseded is ignored.
func (t *Tracker) RunFinished(runID string, result *model.PipelineResult, err error) {
	if err != nil {
		t.fail(runID, err)
		return
	}
	t.succeed(runID, result)
}

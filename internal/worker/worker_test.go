package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yangwenmai/mailbrief/internal/engine"
	"github.com/yangwenmai/mailbrief/internal/model"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
	cred  atomic.Value
}

func (r *countingRunner) Run(ctx context.Context, cred model.Credential) (*model.PipelineResult, error) {
	r.calls.Add(1)
	r.cred.Store(cred)
	if r.err != nil {
		return nil, r.err
	}
	return &model.PipelineResult{Emails: []model.SummaryRecord{}}, nil
}

func TestWorkerRunsOnInterval(t *testing.T) {
	runner := &countingRunner{}
	w := New(runner, 5*time.Millisecond, model.Credential{AccessToken: "sched"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	<-done

	if n := runner.calls.Load(); n < 3 {
		t.Errorf("runs = %d, want at least 3", n)
	}
	if got := runner.cred.Load().(model.Credential); got.AccessToken != "sched" {
		t.Errorf("credential = %+v", got)
	}
	if w.LastFailure() != nil {
		t.Errorf("LastFailure = %+v, want nil", w.LastFailure())
	}
}

func TestWorkerStopsBeforeFirstTick(t *testing.T) {
	runner := &countingRunner{}
	w := New(runner, time.Hour, model.Credential{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)
	if n := runner.calls.Load(); n != 0 {
		t.Errorf("runs = %d, want 0", n)
	}
}

func TestTickSkipsWhenBusy(t *testing.T) {
	runner := &countingRunner{err: engine.ErrRunInProgress}
	w := New(runner, time.Hour, model.Credential{})
	w.tick(context.Background())
	if w.LastFailure() != nil {
		t.Error("a skipped run is not a failure")
	}
}

func TestTickRecordsFailure(t *testing.T) {
	runner := &countingRunner{err: &engine.StepError{Step: engine.StageRetrieve, Err: errors.New("record store fetch failed: status 401")}}
	w := New(runner, time.Hour, model.Credential{})
	w.tick(context.Background())

	f := w.LastFailure()
	if f == nil {
		t.Fatal("LastFailure = nil")
	}
	if f.Step != engine.StageRetrieve || f.Success {
		t.Errorf("failure = %+v", f)
	}
	if f.Error != "record store fetch failed: status 401" {
		t.Errorf("error = %q", f.Error)
	}

	runner.err = nil
	w.tick(context.Background())
	if w.LastFailure() != nil {
		t.Error("success should clear the last failure")
	}
}

func TestBuildFailureUnknownStep(t *testing.T) {
	f := buildFailure(errors.New("plain"))
	if f.Step != "unknown" || f.Error != "plain" {
		t.Errorf("failure = %+v", f)
	}
}

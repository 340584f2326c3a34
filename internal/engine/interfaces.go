package engine

import (
	"context"
	"time"

	"github.com/yangwenmai/mailbrief/internal/model"
)

// SourceRefresher asks an external action to pull fresh source data.
// Implementations never fail: problems are reported in the outcome.
type SourceRefresher interface {
	Trigger(ctx context.Context, cred model.Credential) model.TriggerOutcome
}

// SummaryService runs the remote summarization over unread items.
type SummaryService interface {
	Summarize(ctx context.Context) (*model.SummarizationOutcome, error)
}

// RecordFetcher returns the most recently produced summary records.
type RecordFetcher interface {
	FetchRecent(ctx context.Context) ([]model.SummaryRecord, error)
}

// RecordSource is a read API over a record store backend.
type RecordSource interface {
	Recent(ctx context.Context, limit int) ([]model.SummaryRecord, error)
}

// Stage names reported to observers and carried by StepError.
const (
	StageTrigger   = "trigger"
	StageSettle    = "settle"
	StageSummarize = "summarize"
	StageRetrieve  = "retrieve"
)

// Observer follows a run across stage boundaries. Hooks are called on the
// run's goroutine and must not block for long.
type Observer interface {
	RunStarted(runID string)
	StageStarted(runID, stage string)
	StageFinished(runID, stage string, d time.Duration, err error)
	RunFinished(runID string, result *model.PipelineResult, err error)
}

// NopObserver ignores all hooks. Embed it to implement only some of them.
type NopObserver struct{}

func (NopObserver) RunStarted(string)                                  {}
func (NopObserver) StageStarted(string, string)                        {}
func (NopObserver) StageFinished(string, string, time.Duration, error) {}
func (NopObserver) RunFinished(string, *model.PipelineResult, error)   {}

package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yangwenmai/mailbrief/internal/model"
)

// StubSummarizer returns a fixed outcome without any network call (for
// development/testing).
type StubSummarizer struct {
	Count int
}

func (s *StubSummarizer) Summarize(_ context.Context) (*model.SummarizationOutcome, error) {
	raw, _ := json.Marshal(map[string]any{"count": s.Count, "message": "stub summarization"})
	return &model.SummarizationOutcome{Count: s.Count, Raw: raw}, nil
}

// StubRecordSource serves a couple of canned records (for development/testing).
type StubRecordSource struct{}

func (StubRecordSource) Recent(_ context.Context, limit int) ([]model.SummaryRecord, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	recs := []model.SummaryRecord{
		model.NormalizeRecord("stub-1", now, map[string]any{
			model.FieldSubject: "Weekly infra sync",
			model.FieldFrom:    "ops@example.com",
			model.FieldSnippet: "Agenda: capacity review, on-call handoff.",
			model.FieldSummary: "[Stub] Capacity is fine; on-call rotation changes next week.",
		}),
		model.NormalizeRecord("stub-2", now, map[string]any{
			model.FieldFrom:    "billing@example.com",
			model.FieldSnippet: "Your invoice is ready.",
		}),
	}
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

package engine

import (
	"context"

	"github.com/yangwenmai/mailbrief/internal/model"
)

// MaxRecentRecords bounds each retrieval.
const MaxRecentRecords = 20

// Retriever reads recent summaries from the configured record store. Without
// a store it returns an empty list: showing results is best-effort.
type Retriever struct {
	source    RecordSource
	plainText bool
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithPlainTextSnippets rewrites HTML snippets into readable text. Off by
// default: snippets are returned exactly as stored.
func WithPlainTextSnippets(on bool) RetrieverOption {
	return func(r *Retriever) { r.plainText = on }
}

// NewRetriever creates a retriever over source. A nil source means the store
// is not configured.
func NewRetriever(source RecordSource, opts ...RetrieverOption) *Retriever {
	r := &Retriever{source: source}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FetchRecent returns up to MaxRecentRecords records with unique IDs, in the
// store's own order.
func (r *Retriever) FetchRecent(ctx context.Context) ([]model.SummaryRecord, error) {
	if r == nil || r.source == nil {
		return []model.SummaryRecord{}, nil
	}
	recs, err := r.source.Recent(ctx, MaxRecentRecords)
	if err != nil {
		return nil, err
	}
	recs = model.DedupeRecords(recs)
	if r.plainText {
		for i := range recs {
			recs[i].Snippet = model.PlainTextSnippet(recs[i].Snippet)
		}
	}
	return recs, nil
}

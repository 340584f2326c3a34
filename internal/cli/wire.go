package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/yangwenmai/mailbrief/internal/config"
	"github.com/yangwenmai/mailbrief/internal/engine"
	"github.com/yangwenmai/mailbrief/internal/records"
	"github.com/yangwenmai/mailbrief/internal/runstate"
	"github.com/yangwenmai/mailbrief/internal/store"
)

// app is the set of collaborators one process needs.
type app struct {
	pipeline *engine.Pipeline
	status   *engine.StatusQuery
	tracker  *runstate.Tracker
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

type buildOptions struct {
	// stub replaces the summarization service and record store with canned
	// data for local development.
	stub      bool
	observers []engine.Observer
}

func buildApp(ctx context.Context, c config.Config, opts buildOptions) (*app, error) {
	hc := &http.Client{Timeout: c.HTTPTimeout}
	a := &app{
		tracker: runstate.NewTracker(c.ResetDelay),
		status:  engine.NewStatusQuery(c.SummarizerURL, hc),
	}

	trigger := engine.NewHTTPTrigger(c.TriggerEnabled, c.TriggerURL,
		engine.WithTriggerClient(hc),
		engine.WithForwardCredential(c.TriggerForwardCredential),
	)
	if !c.TriggerConfigured() {
		slog.Info("source trigger disabled")
	}

	var summary engine.SummaryService
	var source engine.RecordSource
	if opts.stub {
		slog.Info("using stub summarizer and record store")
		summary = &engine.StubSummarizer{Count: 2}
		source = engine.StubRecordSource{}
	} else {
		summary = engine.NewHTTPSummarizer(c.SummarizerURL, engine.WithSummarizerClient(hc))
		src, closeFn, err := openRecordSource(ctx, c, hc)
		if err != nil {
			return nil, err
		}
		source = src
		if closeFn != nil {
			a.closers = append(a.closers, closeFn)
		}
	}

	popts := []engine.PipelineOption{
		engine.WithSettleDelay(c.SettleDelay),
		engine.WithRunTimeout(c.RunTimeout),
		engine.WithObserver(a.tracker),
	}
	for _, o := range opts.observers {
		popts = append(popts, engine.WithObserver(o))
	}
	a.pipeline = engine.NewPipeline(trigger, summary, engine.NewRetriever(source, engine.WithPlainTextSnippets(c.SnippetPlainText)), popts...)
	return a, nil
}

// openRecordSource returns the configured backend, or a nil source when
// retrieval is off. The returned close function may be nil.
func openRecordSource(ctx context.Context, c config.Config, hc *http.Client) (engine.RecordSource, func() error, error) {
	switch c.RecordBackend {
	case config.BackendNone:
		slog.Info("record retrieval disabled")
		return nil, nil, nil

	case config.BackendSQLite:
		db, err := store.OpenSQLite(c.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		s, err := store.New(db)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("init store: %w", err)
		}
		slog.Info("reading summaries from sqlite", "path", c.DBPath)
		return s, db.Close, nil

	case config.BackendFirestore:
		client, err := records.NewFirestoreClient(ctx, c.FirestoreProject)
		if err != nil {
			return nil, nil, err
		}
		src := records.NewFirestoreSource(client, c.FirestoreCollection)
		slog.Info("reading summaries from firestore", "project", c.FirestoreProject, "collection", c.FirestoreCollection)
		return src, src.Close, nil

	default:
		at := records.NewAirtableClient(c.AirtableAPIKey, c.AirtableBaseID, c.AirtableTable,
			records.WithAPIURL(c.AirtableAPIURL),
			records.WithHTTPClient(hc),
		)
		if !at.Configured() {
			slog.Warn("AIRTABLE_API_KEY or AIRTABLE_BASE_ID not set, runs will list no summaries")
			return nil, nil, nil
		}
		return at, nil, nil
	}
}

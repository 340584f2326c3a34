package store

import (
	"context"

	"github.com/yangwenmai/mailbrief/internal/model"
)

// RecordReader provides read access to stored summaries. It satisfies
// engine.RecordSource.
type RecordReader interface {
	Recent(ctx context.Context, limit int) ([]model.SummaryRecord, error)
	Count(ctx context.Context) (int, error)
}

// RecordWriter provides write access to stored summaries.
type RecordWriter interface {
	UpsertRecord(ctx context.Context, rec model.SummaryRecord) error
	DeleteRecord(ctx context.Context, id string) error
}

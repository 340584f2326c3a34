package records

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/yangwenmai/mailbrief/internal/model"
)

const (
	DefaultFirestoreCollection = "summaries"

	// createdField orders documents newest first.
	createdField = "createdTime"
)

// FirestoreSource reads summary documents from a Firestore collection.
type FirestoreSource struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreClient creates a Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// NewFirestoreSource reads from collection using client. An empty collection
// selects DefaultFirestoreCollection.
func NewFirestoreSource(client *firestore.Client, collection string) *FirestoreSource {
	if collection == "" {
		collection = DefaultFirestoreCollection
	}
	return &FirestoreSource{client: client, collection: collection}
}

// Recent returns the newest limit documents. Document IDs become record IDs.
func (s *FirestoreSource) Recent(ctx context.Context, limit int) ([]model.SummaryRecord, error) {
	q := s.client.Collection(s.collection).OrderBy(createdField, firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.collection, err)
	}

	out := make([]model.SummaryRecord, 0, len(docs))
	for _, doc := range docs {
		fields := doc.Data()
		out = append(out, model.NormalizeRecord(doc.Ref.ID, createdAt(fields, doc.CreateTime), fields))
	}
	return out, nil
}

// Close releases the underlying client.
func (s *FirestoreSource) Close() error {
	return s.client.Close()
}

// createdAt prefers the stored creation field and falls back to the
// document's own create time.
func createdAt(fields map[string]any, docCreated time.Time) string {
	switch v := fields[createdField].(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	}
	if docCreated.IsZero() {
		return ""
	}
	return docCreated.UTC().Format(time.RFC3339Nano)
}

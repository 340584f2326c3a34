// Package store is the local SQLite record backend. A co-located
// summarization service writes rows here and the retrieval stage reads them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yangwenmai/mailbrief/internal/model"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ RecordReader = (*Store)(nil)
	_ RecordWriter = (*Store)(nil)
)

// ErrNotFound is returned when a record ID does not exist.
var ErrNotFound = errors.New("record not found")

// Store provides data access to the SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 2

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: summaries table
		s.migrateV2, // v1 → v2: newest-first index
	}
	if len(migrations) != currentSchemaVersion {
		return fmt.Errorf("schema version %d has %d migrations", currentSchemaVersion, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}
	return nil
}

// migrateV1 creates the summaries table (v0 → v1). Content columns are
// nullable so that missing fields pick up the normalization defaults.
func (s *Store) migrateV1() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS summaries (
		id         TEXT PRIMARY KEY,
		subject    TEXT,
		sender     TEXT,
		source     TEXT,
		snippet    TEXT,
		summary    TEXT,
		created_at TEXT NOT NULL
	);`)
	return err
}

// migrateV2 adds the ordering index used by Recent (v1 → v2).
func (s *Store) migrateV2() error {
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_summaries_created ON summaries(created_at DESC)`)
	return err
}

// UpsertRecord inserts rec or replaces the row with the same ID. Empty
// content fields are stored as NULL. An empty CreatedAt is stamped with the
// current time.
func (s *Store) UpsertRecord(ctx context.Context, rec model.SummaryRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("record id is required")
	}
	created := rec.CreatedAt
	if created == "" {
		created = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (id, subject, sender, source, snippet, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject = excluded.subject,
			sender = excluded.sender,
			source = excluded.source,
			snippet = excluded.snippet,
			summary = excluded.summary,
			created_at = excluded.created_at`,
		rec.ID, nullable(rec.Subject), nullable(rec.From), nullable(rec.Source),
		nullable(rec.Snippet), nullable(rec.Summary), created,
	)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}
	return nil
}

// DeleteRecord removes a record by ID.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM summaries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Recent returns up to limit records, newest first. A limit of zero or less
// returns every row.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.SummaryRecord, error) {
	query := `SELECT id, subject, sender, source, snippet, summary, created_at
		FROM summaries ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	out := []model.SummaryRecord{}
	for rows.Next() {
		var (
			id, created                             string
			subject, from, source, snippet, summary sql.NullString
		)
		if err := rows.Scan(&id, &subject, &from, &source, &snippet, &summary, &created); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		fields := map[string]any{}
		setField(fields, model.FieldSubject, subject)
		setField(fields, model.FieldFrom, from)
		setField(fields, model.FieldSource, source)
		setField(fields, model.FieldSnippet, snippet)
		setField(fields, model.FieldSummary, summary)
		out = append(out, model.NormalizeRecord(id, created, fields))
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM summaries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count summaries: %w", err)
	}
	return n, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func setField(fields map[string]any, key string, v sql.NullString) {
	if v.Valid {
		fields[key] = v.String
	}
}

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yangwenmai/mailbrief/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := store.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestImportRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	in := `[
		{"id":"a","subject":"Standup","snippet":"<p>Notes</p>","created":"2026-01-01T00:00:00Z"},
		{"id":"b","subject":"Invoice","created":"2026-01-02T00:00:00Z"}
	]`

	n, err := importRecords(ctx, s, strings.NewReader(in))
	if err != nil {
		t.Fatalf("importRecords: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}
	recs, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != "b" || recs[1].Snippet != "<p>Notes</p>" {
		t.Errorf("recs = %+v", recs)
	}
}

func TestImportRecords_Errors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := importRecords(ctx, s, strings.NewReader(`{"id":"a"}`)); err == nil {
		t.Error("object input should fail")
	}
	n, err := importRecords(ctx, s, strings.NewReader(`[{"id":"a"},{"id":""},{"id":"c"}]`))
	if err == nil {
		t.Fatal("blank id should fail")
	}
	if n != 1 {
		t.Errorf("imported %d before the failure, want 1", n)
	}
}

func TestDeleteRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := importRecords(ctx, s, strings.NewReader(`[{"id":"a"}]`)); err != nil {
		t.Fatal(err)
	}
	if err := deleteRecord(ctx, s, "a"); err != nil {
		t.Fatalf("deleteRecord: %v", err)
	}
	err := deleteRecord(ctx, s, "a")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("second delete err = %v, want not found", err)
	}
}

func TestRecordsCommands(t *testing.T) {
	clearEnvForCLI(t)
	dbPath := filepath.Join(t.TempDir(), "cmd.db")
	t.Setenv("DB_PATH", dbPath)

	file := filepath.Join(t.TempDir(), "in.json")
	if err := os.WriteFile(file, []byte(`[{"id":"x"},{"id":"y"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) string {
		t.Helper()
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs(args)
		t.Cleanup(func() {
			rootCmd.SetOut(nil)
			rootCmd.SetArgs(nil)
		})
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return buf.String()
	}

	if out := run("records", "import", file); !strings.Contains(out, "imported 2 records") {
		t.Errorf("import output = %q", out)
	}
	run("records", "delete", "x")
	if out := run("records", "count"); strings.TrimSpace(out) != "1" {
		t.Errorf("count output = %q, want 1", out)
	}
}

// clearEnvForCLI keeps variables from the host out of command tests.
func clearEnvForCLI(t *testing.T) {
	t.Helper()
	for _, k := range []string{"RECORD_BACKEND", "CONFIG_FILE", "LOG_LEVEL", "LOG_FORMAT", "SETTLE_DELAY", "RESET_DELAY", "HTTP_TIMEOUT", "RUN_TIMEOUT", "RUN_RATE_LIMIT", "SCHEDULE_INTERVAL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

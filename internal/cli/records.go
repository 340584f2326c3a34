package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yangwenmai/mailbrief/internal/model"
	"github.com/yangwenmai/mailbrief/internal/store"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage summaries in the local SQLite store",
	Long: `Records edits the SQLite store at DB_PATH, the store read when
RECORD_BACKEND=sqlite.

Examples:
	mailbrief records import summaries.json
	mailbrief records delete rec42
	mailbrief records count`,
}

var recordsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Insert or replace summaries from a JSON array (stdin when no file or \"-\")",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return withStore(cfg.DBPath, func(s *store.Store) error {
			n, err := importRecords(cmd.Context(), s, in)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "imported %d records\n", n)
			return nil
		})
	},
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one summary by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cfg.DBPath, func(s *store.Store) error {
			if err := deleteRecord(cmd.Context(), s, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		})
	},
}

var recordsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored summaries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cfg.DBPath, func(s *store.Store) error {
			n, err := s.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsImportCmd, recordsDeleteCmd, recordsCountCmd)
}

// withStore opens the SQLite store at path for the duration of fn.
func withStore(path string, fn func(*store.Store) error) error {
	db, err := store.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	s, err := store.New(db)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	return fn(s)
}

// importRecords upserts every record of a JSON array read from r. It stops
// at the first record that cannot be written.
func importRecords(ctx context.Context, w store.RecordWriter, r io.Reader) (int, error) {
	var recs []model.SummaryRecord
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return 0, fmt.Errorf("decode records: %w", err)
	}
	for i, rec := range recs {
		if err := w.UpsertRecord(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}

func deleteRecord(ctx context.Context, w store.RecordWriter, id string) error {
	if err := w.DeleteRecord(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("record %s not found", id)
		}
		return err
	}
	return nil
}

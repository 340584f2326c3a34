package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yangwenmai/mailbrief/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the summarization service status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := engine.NewStatusQuery(cfg.SummarizerURL, &http.Client{Timeout: cfg.HTTPTimeout})
		report := q.Query(cmd.Context())
		if err := printReport(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if report.IsError() {
			return fmt.Errorf("status query failed (HTTP %d)", report.StatusCode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printReport(w io.Writer, report engine.StatusReport) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, report.Body, "", "  "); err != nil {
		buf.Reset()
		buf.Write(report.Body)
	}
	c := color.New(color.FgGreen)
	if report.IsError() || report.StatusCode >= 400 {
		c = color.New(color.FgRed)
	}
	c.Fprintf(w, "HTTP %d\n", report.StatusCode)
	_, err := fmt.Fprintln(w, buf.String())
	return err
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yangwenmai/mailbrief/internal/config"
	"github.com/yangwenmai/mailbrief/internal/engine"
	"github.com/yangwenmai/mailbrief/internal/model"
)

var (
	runToken string
	runStub  bool
	runQuiet bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one summarization and print the result as JSON",
	Long: `Run executes the trigger, summarization and retrieval stages once and prints
the aggregated result. Progress lines go to stderr; the JSON result goes to
stdout. The command exits non-zero when a fatal stage fails.

Examples:
	mailbrief run --token "$ACCESS_TOKEN"
	mailbrief run --stub --quiet | jq .emails`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		token := runToken
		if token == "" {
			token = os.Getenv("ACCESS_TOKEN")
		}
		progress := cmd.ErrOrStderr()
		if runQuiet {
			progress = io.Discard
		}
		return runOnce(ctx, cfg, model.Credential{AccessToken: token}, runStub, progress, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runToken, "token", "", "Access token forwarded to the source trigger (default: $ACCESS_TOKEN)")
	runCmd.Flags().BoolVar(&runStub, "stub", false, "Use canned summarizer and record data instead of remote services")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress progress lines")
}

func runOnce(ctx context.Context, c config.Config, cred model.Credential, stub bool, progress, out io.Writer) error {
	a, err := buildApp(ctx, c, buildOptions{
		stub:      stub,
		observers: []engine.Observer{progressPrinter{w: progress}},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.pipeline.Run(ctx, cred)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

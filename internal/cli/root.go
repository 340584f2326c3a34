// Package cli is the mailbrief command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yangwenmai/mailbrief/internal/config"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var (
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mailbrief",
	Short: "Fetch, summarize and list recent emails through remote services",
	Long: `mailbrief orchestrates one summarization run: it optionally triggers an
external mail fetch, asks the summarization service to process unread mail,
and lists the most recent summaries from the record store.

Examples:
	# Serve the HTTP API (POST /api/start-summarization, GET /api/status)
	mailbrief serve

	# Run once from the terminal
	mailbrief run --token "$ACCESS_TOKEN"

	# Ask the summarization service for its status
	mailbrief status

Configuration comes from the environment, an optional YAML file (--config or
CONFIG_FILE) and .env.local, in that order of precedence.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	// Without a subcommand the binary serves.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFiles(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		slog.SetDefault(cfg.NewLogger(os.Stderr))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides CONFIG_FILE)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yangwenmai/mailbrief/internal/api"
	"github.com/yangwenmai/mailbrief/internal/model"
	"github.com/yangwenmai/mailbrief/internal/worker"
)

var serveStub bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, serveStub)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveStub, "stub", false, "Use canned summarizer and record data instead of remote services")
}

func serve(ctx context.Context, stub bool) error {
	a, err := buildApp(ctx, cfg, buildOptions{stub: stub})
	if err != nil {
		return err
	}
	defer a.Close()

	apiOpts := []api.Option{
		api.WithCORSOrigin(cfg.CORSOrigin),
		api.WithRunRateLimit(cfg.RunRateLimit),
		api.WithRequireCredential(cfg.RequireCredential),
	}
	if cfg.ScheduleInterval > 0 {
		w := worker.New(a.pipeline, cfg.ScheduleInterval, model.Credential{})
		stopWorker := startWorker(ctx, w)
		// Deferred after a.Close, so it runs first: the backends stay open
		// until a scheduled run in flight has finished.
		defer stopWorker()
		apiOpts = append(apiOpts, api.WithScheduleReporter(w))
	}

	srv := api.New(a.pipeline, a.status, a.tracker, apiOpts...)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mailbrief server listening", "addr", "http://localhost:"+cfg.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	// In-flight runs finish within the settle delay plus the HTTP timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SettleDelay+cfg.HTTPTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// startWorker runs w until the returned stop function is called. stop
// cancels the schedule and waits for any run in progress to return.
func startWorker(ctx context.Context, w *worker.Worker) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

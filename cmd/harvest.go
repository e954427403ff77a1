package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/recipecorpus/harvester/internal/harvest"
	"github.com/recipecorpus/harvester/internal/progress"
	"github.com/recipecorpus/harvester/internal/progress/sinks"
)

// newHarvestCmd creates the 'harvest' subcommand, which runs the acquisition
// loop for every configured site.
func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Walks every configured site and collects recipe documents",
		Long: `Runs one identifier walk per configured site until each reaches its
target document count, resuming from the per-site ledgers. Interrupting the
run is safe: accepted documents are durably persisted as they are found.`,
		RunE: runHarvestCommand,
	}
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := harvest.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load harvest config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}
	reporter := progress.NewReporter(ctx, rootLogger,
		sinks.NewLogSink(rootLogger),
		promSink,
	)
	defer func() {
		if cerr := reporter.Close(context.Background()); cerr != nil {
			rootLogger.Warn("failed to close progress reporter", zap.Error(cerr))
		}
	}()

	if cfg.MetricsAddr != "" {
		startMetricsServer(ctx, cfg.MetricsAddr, rootLogger)
	}

	runner, err := harvest.NewRunner(cfg, reporter, rootLogger)
	if err != nil {
		return fmt.Errorf("init runner: %w", err)
	}
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run harvest: %w", err)
	}
	return nil
}

// startMetricsServer exposes /metrics and /healthz while the batch run is in
// flight. The server dies with the run; its lifecycle is tied to ctx.
func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server error", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown error", zap.Error(err))
		}
	}()
}

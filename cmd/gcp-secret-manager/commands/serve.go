// Package commands holds the cobra subcommands of the synchronizer binary.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magicorntech/gcp-secret-manager/internal/config"
	"github.com/magicorntech/gcp-secret-manager/internal/gcp"
	"github.com/magicorntech/gcp-secret-manager/internal/health"
	"github.com/magicorntech/gcp-secret-manager/internal/kubernetes"
	"github.com/magicorntech/gcp-secret-manager/internal/logging"
	"github.com/magicorntech/gcp-secret-manager/internal/scheduler"
	"github.com/magicorntech/gcp-secret-manager/internal/server"
	"github.com/magicorntech/gcp-secret-manager/internal/syncer"
)

// Options carries the persistent flags shared by all subcommands.
type Options struct {
	SettingsPath string
	Log          logging.Options
}

// NewServeCommand runs the synchronizer: scheduler loop plus HTTP API.
func NewServeCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the synchronizer",
		Long: `Start the periodic sync loop and the HTTP API.

The process fails fast on missing required settings, then keeps running
through any sync failure; failed cycles are retried on a shortened backoff
and surfaced via /api/health.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Log.Validate(); err != nil {
				return err
			}
			logger := logging.NewFromOptions(opts.Log)
			defer func() { _ = logger.Sync() }()

			settings, err := config.Load(opts.SettingsPath)
			if err != nil {
				return err
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			return serve(settings, logger)
		},
	}
}

func serve(settings *config.Settings, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := health.NewTracker()
	health.InitMetrics()

	source, err := gcp.NewClient(ctx, settings)
	if err != nil {
		tracker.SetSourceHealth(false, err.Error())
		return fmt.Errorf("failed to initialize GCP Secret Manager client: %w", err)
	}
	defer func() { _ = source.Close() }()
	tracker.SetSourceHealth(true, "Secret Manager client initialized")
	logger.Info("GCP Secret Manager client initialized",
		zap.String("secret", source.ResourceName()))

	sink, err := kubernetes.NewClient(settings)
	if err != nil {
		tracker.SetSinkHealth(false, err.Error())
		return fmt.Errorf("failed to initialize Kubernetes client: %w", err)
	}
	tracker.SetSinkHealth(true, fmt.Sprintf("Kubernetes client initialized (namespace: %s)", settings.K8sNamespace))
	logger.Info("Kubernetes client initialized",
		zap.String("target", sink.Target()))

	engine := syncer.NewEngine(
		source,
		sink,
		tracker,
		health.NewSyncMetrics(),
		logger.Named("syncer"),
		config.DefaultStepTimeout,
	)

	sched := scheduler.New(
		engine,
		settings.SyncInterval(),
		config.DefaultFailureBackoff,
		logger.Named("scheduler"),
	)

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		sched.Run(ctx)
	}()

	srv := server.New(
		server.DefaultConfig(settings.ListenAddr, settings.APIToken),
		tracker,
		engine,
		logger.Named("http"),
	)
	srvErr := srv.Start()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-srvErr:
		if err != nil {
			stop()
			<-schedDone
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown incomplete", zap.Error(err))
	}

	<-schedDone
	logger.Info("shutdown complete")
	return nil
}

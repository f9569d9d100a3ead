package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wallet-sync/internal/observability"
	"wallet-sync/internal/orchestrator"
	"wallet-sync/internal/retention"
	"wallet-sync/internal/scheduler"
	pgstore "wallet-sync/internal/storage/postgres"
)

// Job names, also used as metric labels.
const (
	jobWalletSync     = "wallet-sync"
	jobRetentionPrune = "retention-prune"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.run(cmd.Context())
		},
	}
}

func (a *app) run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := a.logger

	startCtx, cancelStart := context.WithTimeout(parent, 30*time.Second)
	s, err := a.openStores(startCtx)
	cancelStart()
	if err != nil {
		return err
	}

	sched, err := a.newScheduler(a.newOrchestrator(s), a.newPruner(s))
	if err != nil {
		return err
	}

	var srv *http.Server
	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv = &http.Server{
			Addr:              addr,
			Handler:           newHTTPHandler(a.pool),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("starting HTTP server", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", zap.Error(err))
			}
		}()
	}

	// The run context outlives the signal so in-flight jobs get the grace period.
	if err := sched.Start(context.WithoutCancel(parent)); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	stop()
	logger.Info("shutdown requested", zap.Duration("grace_period", a.cfg.Shutdown.GracePeriod))

	graceCtx, cancelGrace := context.WithTimeout(context.Background(), a.cfg.Shutdown.GracePeriod)
	defer cancelGrace()

	if err := sched.Stop(graceCtx); err != nil {
		logger.Warn("in-flight jobs did not finish within grace period", zap.Error(err))
	}
	if srv != nil {
		if err := srv.Shutdown(graceCtx); err != nil {
			logger.Warn("HTTP server shutdown", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func (a *app) newScheduler(orch *orchestrator.Orchestrator, pruner *retention.Pruner) (*scheduler.Scheduler, error) {
	pruneSchedule, err := scheduler.ParseCron(a.cfg.Retention.Schedule)
	if err != nil {
		return nil, err
	}

	return scheduler.New(scheduler.Options{
		Jobs: []scheduler.Job{
			{
				Name:       jobWalletSync,
				Schedule:   scheduler.Every(a.cfg.Sync.Interval),
				RunOnStart: a.cfg.Sync.RunOnStart,
				Run: func(ctx context.Context) error {
					_, err := orch.SyncAllWallets(ctx)
					return err
				},
			},
			{
				Name:     jobRetentionPrune,
				Schedule: pruneSchedule,
				Run: func(ctx context.Context) error {
					return pruner.PruneOldData(ctx).Err()
				},
			},
		},
		Logger: a.logger.Named("scheduler"),
	}), nil
}

// newHTTPHandler serves Prometheus metrics and a health check that pings Postgres.
func newHTTPHandler(pool *pgstore.Pool) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}


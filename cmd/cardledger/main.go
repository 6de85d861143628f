package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cardledger/internal/backend"
	"cardledger/internal/cli"
	apphttp "cardledger/internal/http"
	applog "cardledger/internal/log"
	"cardledger/internal/scheduler"
	"cardledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	svc, err := services.NewLedgerService(ctx, res.Deps, services.Options{
		AutoPurgeOnCapacity: cfg.AutoPurgeOnCapacity,
		BackupStaleAfter:    cfg.BackupStaleAfter,
		DefaultCardLimit:    cfg.DefaultCardLimit,
	})
	if err != nil {
		logger.Error("Failed to load ledger", applog.FieldError, err)
		os.Exit(1)
	}

	sched, err := scheduler.New(svc, cfg.RolloverCron, logger)
	if err != nil {
		logger.Error("Failed to schedule maintenance checks", applog.FieldError, err)
		os.Exit(1)
	}
	// Startup evaluation, then on schedule.
	if fired, err := sched.RunOnce(ctx); err != nil {
		logger.Warn("Startup maintenance checks failed", applog.FieldError, err)
	} else if len(fired) > 0 {
		logger.Info("Startup maintenance checks fired", "checks", fired)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{Logger: logger})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting cardledger server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		logger.Info("Next maintenance run", "at", sched.Next())
		<-gctx.Done()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
		defer shutdownCancel()
		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := sched.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// Command ledger-maint runs one-off maintenance against the ledger store and
// optionally consumes ledger events.
//
//	ledger-maint -backup
//	ledger-maint -purge 2025
//	ledger-maint -migrate-from c1 -migrate-to c2 -archive
//	ledger-maint -check
//	ledger-maint -restore backup.json
//	ledger-maint -events
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"cardledger/internal/amqp"
	"cardledger/internal/backend"
	"cardledger/internal/cli"
	"cardledger/internal/config"
	applog "cardledger/internal/log"
	"cardledger/internal/scheduler"
	"cardledger/internal/services"
	"cardledger/internal/worker"
)

type options struct {
	backup      bool
	purgeYear   int
	migrateFrom string
	migrateTo   string
	archive     bool
	check       bool
	restore     string
	events      bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("ledger-maint", flag.ContinueOnError)
	fs.BoolVar(&o.backup, "backup", false, "write a backup archive to BACKUP_DIR")
	fs.IntVar(&o.purgeYear, "purge", 0, "purge settled history before `YEAR`")
	fs.StringVar(&o.migrateFrom, "migrate-from", "", "move open debt away from card `ID`")
	fs.StringVar(&o.migrateTo, "migrate-to", "", "card `ID` receiving migrated debt")
	fs.BoolVar(&o.archive, "archive", false, "archive the source card after migration")
	fs.BoolVar(&o.check, "check", false, "evaluate rollover and backup checks now")
	fs.StringVar(&o.restore, "restore", "", "replace the ledger with the archive in `FILE`")
	fs.BoolVar(&o.events, "events", false, "consume ledger events until interrupted")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if (o.migrateFrom == "") != (o.migrateTo == "") {
		return o, errors.New("-migrate-from and -migrate-to must be used together")
	}
	if o.archive && o.migrateFrom == "" {
		return o, errors.New("-archive requires -migrate-from")
	}
	if !o.backup && o.purgeYear == 0 && o.migrateFrom == "" && !o.check && o.restore == "" && !o.events {
		return o, errors.New("no action given")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "ledger-maint:", err)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(applog.ComponentMaint)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, logger, cfg, opts); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Maintenance failed", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *applog.Logger, cfg *config.Config, opts options) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize %s backend: %w", cfg.DataBackend, err)
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
		return fmt.Errorf("load ledger: %w", err)
	}

	if opts.restore != "" {
		body, err := os.ReadFile(opts.restore)
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		doc, err := svc.Restore(ctx, body)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Ledger restored", "file", opts.restore, "cards", len(doc.Cards), "expenses", len(doc.Expenses))
	}

	if opts.migrateFrom != "" {
		moved, err := svc.MigrateDebt(ctx, opts.migrateFrom, opts.migrateTo, opts.archive)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Debt migrated",
			"source", opts.migrateFrom,
			"target", opts.migrateTo,
			"moved", moved,
			"archived", opts.archive)
	}

	if opts.purgeYear != 0 {
		result, err := svc.Purge(ctx, opts.purgeYear)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "History purged", "year", opts.purgeYear, "result", result)
	}

	if opts.backup {
		receipt, err := svc.Backup(ctx)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Backup written", "path", receipt.Path, "bytes", receipt.Bytes)
	}

	if opts.check {
		sched, err := scheduler.New(svc, cfg.RolloverCron, logger)
		if err != nil {
			return err
		}
		fired, err := sched.RunOnce(ctx)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Maintenance checks evaluated", "fired", fired)
	}

	if opts.events {
		return consumeEvents(ctx, logger, res, cfg.BackupStaleAfter)
	}
	return nil
}

// consumeEvents runs the backup check once and then handles broker events
// until ctx is cancelled.
func consumeEvents(ctx context.Context, logger *applog.Logger, res *backend.Result, staleAfter time.Duration) error {
	if res.Events == nil {
		return errors.New("-events requires AMQP_URL")
	}
	w := worker.NewEventWorker(res.Store, res.Deps.Archive, staleAfter, logger)
	if wrote, err := w.StartupCheck(ctx); err != nil {
		logger.WarnContext(ctx, "Startup backup check failed", applog.FieldError, err)
	} else if wrote {
		logger.InfoContext(ctx, "Startup backup written")
	}

	logger.InfoContext(ctx, "Consuming ledger events")
	return res.Events.Run(ctx, func(ev *amqp.LedgerEvent) error {
		return w.HandleEvent(ctx, ev)
	})
}

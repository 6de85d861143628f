package worker

import (
	"context"
	"fmt"
	"time"

	"cardledger/internal/amqp"
	applog "cardledger/internal/log"
	"cardledger/internal/retention"
	"cardledger/internal/services"
	"cardledger/internal/storage"
)

// EventWorker reacts to ledger events outside the API process. It never
// writes the ledger document: backups read what is stored and an empty
// store is left empty.
type EventWorker struct {
	store      *storage.DataStore
	archive    retention.Exporter
	staleAfter time.Duration
	now        func() time.Time
	logger     *applog.Logger
}

func NewEventWorker(store *storage.DataStore, archive retention.Exporter, staleAfter time.Duration, logger *applog.Logger) *EventWorker {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &EventWorker{
		store:      store,
		archive:    archive,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     logger.WithComponent(applog.ComponentMaint),
	}
}

// WithClock replaces the time source. Intended for tests.
func (w *EventWorker) WithClock(now func() time.Time) *EventWorker {
	w.now = now
	return w
}

// HandleEvent processes one delivered event. Returning an error requeues it.
func (w *EventWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	switch ev.Kind {
	case amqp.EventBackupStale:
		_, err := w.writeBackup(ctx, "stale_event")
		return err
	case amqp.EventCapacityExceeded:
		w.logger.ErrorContext(ctx, "Ledger reached storage capacity",
			applog.FieldOperation, ev.Attributes["operation"],
			"attributes", ev.Attributes)
	case amqp.EventRolloverPending:
		w.logger.WarnContext(ctx, "Year rollover awaiting purge or dismissal",
			"last_seen_year", ev.Attributes["last_seen_year"],
			"year", ev.Attributes["year"])
	default:
		w.logger.InfoContext(ctx, "Ledger event",
			"kind", ev.Kind,
			"timestamp", ev.Timestamp,
			"attributes", ev.Attributes)
	}
	return nil
}

// StartupCheck writes a backup when the last one is older than staleAfter,
// covering events missed while the worker was down. It reports whether a
// backup was written.
func (w *EventWorker) StartupCheck(ctx context.Context) (bool, error) {
	meta, err := w.store.Meta(ctx)
	if err != nil {
		return false, fmt.Errorf("read ledger metadata: %w", err)
	}
	if !(services.BackupChecker{StaleAfter: w.staleAfter}).IsDue(meta, w.now()) {
		w.logger.InfoContext(ctx, "Backup is current on startup", "last_backup", meta.LastBackup)
		return false, nil
	}
	receipt, err := w.writeBackup(ctx, "startup")
	if err != nil {
		return false, err
	}
	return receipt.Path != "", nil
}

func (w *EventWorker) writeBackup(ctx context.Context, trigger string) (storage.Receipt, error) {
	if w.archive == nil {
		w.logger.WarnContext(ctx, "No archive configured, skipping backup", "trigger", trigger)
		return storage.Receipt{}, nil
	}
	doc, ok, err := w.store.ReadSnapshot(ctx)
	if err != nil {
		return storage.Receipt{}, fmt.Errorf("load ledger for backup: %w", err)
	}
	if !ok {
		w.logger.InfoContext(ctx, "Ledger not initialised yet, skipping backup", "trigger", trigger)
		return storage.Receipt{}, nil
	}
	receipt, err := w.archive.Export(ctx, doc)
	if err != nil {
		return storage.Receipt{}, fmt.Errorf("write backup: %w", err)
	}
	w.logger.InfoContext(ctx, "Backup written",
		"trigger", trigger,
		"path", receipt.Path,
		"bytes", receipt.Bytes)
	return receipt, nil
}

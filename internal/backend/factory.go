package backend

import (
	"context"
	"errors"
	"fmt"

	"cardledger/internal/amqp"
	applog "cardledger/internal/log"
	"cardledger/internal/services"
	gsheet "cardledger/internal/sheets/google"
	"cardledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentStorage)}
}

// Create opens the document backend and attaches the optional archive,
// broker and spreadsheet adapters. A broker that cannot be reached is
// logged and skipped; a spreadsheet that cannot be reached is an error.
func (f *DefaultFactory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	docBackend, err := f.openDocumentBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := storage.New(docBackend, storage.Options{
		MaxBytes:         cfg.MaxDocumentBytes,
		DefaultCardLimit: cfg.DefaultCardLimit,
	})
	res := &Result{
		Store: store,
		Deps:  services.Deps{Store: store},
	}

	if cfg.BackupDir != "" {
		res.Archive = storage.NewFileArchive(store, cfg.BackupDir)
		res.Deps.Archive = res.Archive
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				applog.FieldError, err)
		} else {
			res.Events = client
			res.Deps.Events = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	if cfg.SheetsEnabled() {
		sheetsClient, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			StatementSheet:  cfg.GoogleStatementSheet,
			CategoriesSheet: cfg.GoogleCategoriesSheet,
		})
		if err != nil {
			_ = res.close()
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		res.Deps.Statements = sheetsClient
		res.Deps.Categories = sheetsClient
		f.logger.InfoContext(ctx, "Initialized Google Sheets export")
	}

	res.Cleanup = res.close
	f.logger.InfoContext(ctx, "Initialized backend",
		"type", cfg.Type.String(),
		"backup_dir", cfg.BackupDir,
		"amqp_enabled", res.Events != nil,
		"sheets_enabled", cfg.SheetsEnabled())
	return res, nil
}

func (f *DefaultFactory) openDocumentBackend(ctx context.Context, cfg Config) (storage.Backend, error) {
	switch cfg.Type {
	case SQLiteBackend:
		b, err := storage.NewSQLiteBackend(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened SQLite document store", "db_path", cfg.SQLiteDBPath)
		return b, nil
	case MemoryBackend:
		f.logger.WarnContext(ctx, "Using in-memory document store, data is lost on exit")
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (r *Result) close() error {
	var errs []error
	if r.Events != nil {
		if err := r.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp: %w", err))
		}
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

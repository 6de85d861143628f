// Package services provides business logic and orchestration services.
//
// LedgerService owns the in-memory ledger document. Every mutation works on
// a copy, swaps it in and persists it through the DataStore against the
// stored version it last saw, so a write made meanwhile by another process
// is detected instead of overwritten. Events and spreadsheet exports are
// best-effort side channels.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"cardledger/internal/amqp"
	"cardledger/internal/core"
	"cardledger/internal/ledger"
	"cardledger/internal/retention"
	"cardledger/internal/sheets"
	"cardledger/internal/storage"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotDurable reports a change that is live in memory but was not
	// written to the store.
	ErrNotDurable = retention.ErrNotDurable

	ErrNotApplicable  = errors.New("expense has no occurrence in that period")
	ErrCardCancelled  = errors.New("card is cancelled")
	ErrSheetsDisabled = errors.New("spreadsheet export not configured")

	// ErrStale reports a change rejected because the stored ledger was
	// modified elsewhere. The service has reloaded the stored version.
	ErrStale = storage.ErrStaleDocument
	ErrNoArchive      = errors.New("backup archive not configured")
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Deps groups the collaborators of LedgerService. Only Store is required.
type Deps struct {
	Store      *storage.DataStore
	Archive    retention.Exporter
	Events     EventPublisher
	Statements sheets.StatementWriter
	Categories sheets.CategoryReader
}

type Options struct {
	AutoPurgeOnCapacity bool
	BackupStaleAfter    time.Duration
	DefaultCardLimit    decimal.Decimal
	Now                 func() time.Time
}

type LedgerService struct {
	store      *storage.DataStore
	archive    retention.Exporter
	events     EventPublisher
	statements sheets.StatementWriter
	categories sheets.CategoryReader
	engine     *ledger.Engine
	opts       Options

	mu       sync.RWMutex
	doc      core.Document
	revision uint64
	// stored is the DataStore version doc was loaded from or saved as.
	stored int64
}

// NewLedgerService loads the stored document and returns a service serving
// it.
func NewLedgerService(ctx context.Context, deps Deps, opts Options) (*LedgerService, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("ledger service: store is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BackupStaleAfter <= 0 {
		opts.BackupStaleAfter = 15 * 24 * time.Hour
	}
	doc, stored, err := deps.Store.LoadVersioned(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	s := &LedgerService{
		store:      deps.Store,
		archive:    deps.Archive,
		events:     deps.Events,
		statements: deps.Statements,
		categories: deps.Categories,
		engine:     ledger.NewEngine(opts.Now),
		opts:       opts,
		doc:        doc,
		revision:   1,
		stored:     stored,
	}
	slog.InfoContext(ctx, "Ledger service ready",
		"cards", len(doc.Cards),
		"expenses", len(doc.Expenses),
		"auto_purge", opts.AutoPurgeOnCapacity)
	return s, nil
}

// Snapshot returns a deep copy of the current document.
func (s *LedgerService) Snapshot() core.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Revision increases with every applied mutation. Read caches key on it.
func (s *LedgerService) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *LedgerService) Statement(year int, month time.Month, filter ledger.Filter) ledger.Statement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Statement(&s.doc, year, month, filter)
}

func (s *LedgerService) CardLimit(cardID string) ledger.LimitStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Limit(&s.doc, cardID)
}

func (s *LedgerService) ProjectedEnd(expenseID string) (ledger.EndEstimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.doc.Expense(expenseID)
	if !ok {
		return ledger.EndEstimate{}, fmt.Errorf("expense %s: %w", expenseID, core.ErrNotFound)
	}
	return ledger.ProjectedEnd(*e), nil
}

func (s *LedgerService) Debts() []ledger.Debt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.Debts(&s.doc)
}

func (s *LedgerService) RecommendCard() (ledger.Recommendation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Recommend(&s.doc)
}

func (s *LedgerService) Usage() (storage.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Usage(s.doc)
}

// Categories returns the category and beneficiary lists.
func (s *LedgerService) Categories() (categories, beneficiaries []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.doc.Categories...), append([]string(nil), s.doc.Beneficiaries...)
}

// mutate applies fn to a copy of the document. When fn succeeds the copy
// becomes current and is persisted; when it fails nothing changes.
func (s *LedgerService) mutate(ctx context.Context, op string, fn func(doc *core.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.doc = next
	s.revision++
	return s.persist(ctx, op)
}

// persist writes the current document. Must be called with mu held.
//
// A capacity failure is reported as an event and, when enabled, answered
// with a forced purge for the current year whose own save is the retry. The
// recovery only counts when the purge removed something and its save
// succeeded. A stale write drops the local change in favour of the stored
// document.
func (s *LedgerService) persist(ctx context.Context, op string) error {
	err := s.saver().SaveSnapshot(ctx, s.doc)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStale) {
		return s.resync(ctx, op, err)
	}
	if !errors.Is(err, storage.ErrCapacityExceeded) {
		slog.ErrorContext(ctx, "Failed to persist ledger", "operation", op, "error", err)
		return fmt.Errorf("%w: %w", ErrNotDurable, err)
	}

	slog.ErrorContext(ctx, "Ledger storage capacity exceeded",
		"operation", op,
		"auto_purge", s.opts.AutoPurgeOnCapacity,
		"error", err)
	s.publish(ctx, amqp.EventCapacityExceeded, map[string]string{"operation": op})
	if !s.opts.AutoPurgeOnCapacity || s.archive == nil {
		return fmt.Errorf("%w: %w", ErrNotDurable, err)
	}

	year := s.opts.Now().Year()
	res, perr := retention.NewPurger(s.archive, s.saver()).Purge(ctx, &s.doc, year)
	if perr != nil {
		if errors.Is(perr, ErrStale) {
			return s.resync(ctx, op, perr)
		}
		if res.Removed > 0 {
			s.revision++
		}
		return fmt.Errorf("%w: forced purge: %w", ErrNotDurable, perr)
	}
	if res.Removed == 0 {
		return fmt.Errorf("%w: forced purge found nothing to remove: %w", ErrNotDurable, err)
	}
	s.revision++
	s.publishPurge(ctx, year, res, "capacity")
	return nil
}

// resync replaces the in-memory document with the stored one after a
// stale write and returns cause. Must be called with mu held.
func (s *LedgerService) resync(ctx context.Context, op string, cause error) error {
	slog.ErrorContext(ctx, "Ledger changed in storage by another writer, local change discarded",
		"operation", op,
		"version", s.stored,
		"error", cause)
	doc, stored, err := s.store.LoadVersioned(ctx)
	if err != nil {
		return fmt.Errorf("%w: reload failed: %w", ErrNotDurable, errors.Join(cause, err))
	}
	s.doc = doc
	s.stored = stored
	s.revision++
	return cause
}

// versionedSaver saves through the store against the version the service
// last saw and records the new one. Used with mu held.
type versionedSaver struct{ s *LedgerService }

func (v versionedSaver) SaveSnapshot(ctx context.Context, doc core.Document) error {
	next, err := v.s.store.SaveVersioned(ctx, doc, v.s.stored)
	if err != nil {
		return err
	}
	v.s.stored = next
	return nil
}

func (s *LedgerService) saver() versionedSaver {
	return versionedSaver{s: s}
}

func (s *LedgerService) publish(ctx context.Context, kind amqp.EventKind, attrs map[string]string) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping event", "kind", kind)
		return
	}
	if err := s.events.PublishEvent(ctx, amqp.NewLedgerEvent(kind, attrs)); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event", "kind", kind, "error", err)
	}
}

func (s *LedgerService) publishPurge(ctx context.Context, year int, res retention.Result, trigger string) {
	s.publish(ctx, amqp.EventPurgeCompleted, map[string]string{
		"year":    strconv.Itoa(year),
		"kept":    strconv.Itoa(res.Kept),
		"removed": strconv.Itoa(res.Removed),
		"backup":  res.Receipt.Path,
		"trigger": trigger,
	})
}

// Close closes the underlying store.
func (s *LedgerService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}

// isNotDurable reports a change that is live in memory but not stored. A
// stale write is not one: the change was discarded.
func isNotDurable(err error) bool {
	return errors.Is(err, ErrNotDurable) && !errors.Is(err, ErrStale)
}

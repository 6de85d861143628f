// Package retention removes settled history from the ledger without ever
// discarding an obligation that is still open.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cardledger/internal/core"
	"cardledger/internal/ledger"
	"cardledger/internal/storage"
)

var (
	ErrExportFailed       = errors.New("pre-purge export failed")
	ErrInvariantViolation = errors.New("purge would remove an open obligation")
	ErrNotDurable         = errors.New("change applied in memory but not persisted")
)

type (
	// Exporter produces a full backup of the document before it is reduced.
	Exporter interface {
		Export(ctx context.Context, doc core.Document) (storage.Receipt, error)
	}

	Saver interface {
		SaveSnapshot(ctx context.Context, doc core.Document) error
	}

	Plan struct {
		Kept    []core.Expense
		Removed []core.Expense
	}

	Result struct {
		Kept       int             `json:"kept"`
		Removed    int             `json:"removed"`
		RemovedIDs []string        `json:"removedIds"`
		Receipt    storage.Receipt `json:"receipt"`
	}
)

// Keep reports whether e survives a purge for currentYear: it started this
// year or later, it is an open-ended recurring obligation, it still has
// unpaid installments, or its age cannot be established.
func Keep(e core.Expense, currentYear int) bool {
	origin, err := e.Origin()
	if err != nil {
		return true
	}
	if origin.Year() >= currentYear {
		return true
	}
	return Open(e)
}

// Open reports whether e is a live obligation regardless of its age.
func Open(e core.Expense) bool {
	if e.Type == core.TypeRecurring {
		return e.Termination == nil
	}
	if e.Type.IsInstallment() {
		return !ledger.IsSettled(e)
	}
	return false
}

// PlanPurge splits expenses into kept and removed, preserving order.
func PlanPurge(expenses []core.Expense, currentYear int) Plan {
	plan := Plan{Kept: []core.Expense{}, Removed: []core.Expense{}}
	for _, e := range expenses {
		if Keep(e, currentYear) {
			plan.Kept = append(plan.Kept, e)
		} else {
			plan.Removed = append(plan.Removed, e)
		}
	}
	return plan
}

// Verify fails with ErrInvariantViolation if any expense slated for removal
// is still open.
func Verify(removed []core.Expense) error {
	var open []string
	for _, e := range removed {
		if Open(e) {
			open = append(open, e.ID)
		}
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, open)
	}
	return nil
}

type Purger struct {
	exporter Exporter
	saver    Saver
}

func NewPurger(exporter Exporter, saver Saver) *Purger {
	return &Purger{exporter: exporter, saver: saver}
}

// Purge exports doc, drops the expenses that fail Keep and persists the
// result. A failed export or a failed invariant check leaves doc untouched.
// A failed save returns ErrNotDurable with doc already reduced.
func (p *Purger) Purge(ctx context.Context, doc *core.Document, currentYear int) (Result, error) {
	plan := PlanPurge(doc.Expenses, currentYear)
	res := Result{Kept: len(plan.Kept), Removed: len(plan.Removed), RemovedIDs: ids(plan.Removed)}
	if len(plan.Removed) == 0 {
		slog.InfoContext(ctx, "Nothing to purge", "year", currentYear, "kept", res.Kept)
		return res, nil
	}

	receipt, err := p.exporter.Export(ctx, *doc)
	if err != nil {
		slog.ErrorContext(ctx, "Pre-purge export failed, purge aborted", "year", currentYear, "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	res.Receipt = receipt

	if err := Verify(plan.Removed); err != nil {
		slog.ErrorContext(ctx, "Purge invariant violated, data loss prevented",
			"year", currentYear,
			"error", err)
		return Result{}, err
	}

	doc.Expenses = plan.Kept
	if err := p.saver.SaveSnapshot(ctx, *doc); err != nil {
		slog.ErrorContext(ctx, "Purged document not persisted",
			"year", currentYear,
			"removed", res.Removed,
			"backup", receipt.Path,
			"error", err)
		return res, fmt.Errorf("%w: %w", ErrNotDurable, err)
	}

	slog.InfoContext(ctx, "Ledger purge completed",
		"year", currentYear,
		"kept", res.Kept,
		"removed", res.Removed,
		"backup", receipt.Path)
	return res, nil
}

func ids(expenses []core.Expense) []string {
	out := make([]string, len(expenses))
	for i, e := range expenses {
		out[i] = e.ID
	}
	return out
}

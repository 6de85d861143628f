package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"cardledger/internal/amqp"
	"cardledger/internal/core"
	"cardledger/internal/ledger"
	"cardledger/internal/retention"
	"cardledger/internal/storage"
)

// Status summarizes storage usage and pending maintenance.
type Status struct {
	Revision        uint64        `json:"revision"`
	Usage           storage.Usage `json:"usage"`
	UsagePercent    float64       `json:"usagePercent"`
	LastBackup      *time.Time    `json:"lastBackup,omitempty"`
	BackupStale     bool          `json:"backupStale"`
	LastSeenYear    int           `json:"lastSeenYear"`
	RolloverPending bool          `json:"rolloverPending"`
}

func (s *LedgerService) Status(ctx context.Context) (Status, error) {
	usage, err := s.Usage()
	if err != nil {
		return Status{}, err
	}
	meta, err := s.store.Meta(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read ledger metadata: %w", err)
	}
	now := s.opts.Now()
	st := Status{
		Revision:        s.Revision(),
		Usage:           usage,
		UsagePercent:    usage.Percent(),
		BackupStale:     BackupChecker{StaleAfter: s.opts.BackupStaleAfter}.IsDue(meta, now),
		LastSeenYear:    meta.LastSeenYear,
		RolloverPending: RolloverChecker{}.IsDue(meta, now),
	}
	if !meta.LastBackup.IsZero() {
		t := meta.LastBackup
		st.LastBackup = &t
	}
	return st, nil
}

// Purge removes settled history from before year after exporting a full
// backup. A successful purge acknowledges the current year rollover.
func (s *LedgerService) Purge(ctx context.Context, year int) (retention.Result, error) {
	if s.archive == nil {
		return retention.Result{}, ErrNoArchive
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := retention.NewPurger(s.archive, s.saver()).Purge(ctx, &s.doc, year)
	if errors.Is(err, ErrStale) {
		return retention.Result{}, s.resync(ctx, "purge", err)
	}
	if res.Removed > 0 && (err == nil || isNotDurable(err)) {
		s.revision++
	}
	if err != nil {
		return res, err
	}
	if err := s.store.MarkSeenYear(ctx, s.opts.Now().Year()); err != nil {
		slog.WarnContext(ctx, "Failed to acknowledge year rollover", "error", err)
	}
	if res.Removed > 0 {
		s.publishPurge(ctx, year, res, "manual")
	}
	return res, nil
}

// DismissRollover acknowledges the year change without purging.
func (s *LedgerService) DismissRollover(ctx context.Context) error {
	return s.store.MarkSeenYear(ctx, s.opts.Now().Year())
}

// Backup writes a full archive through the configured exporter.
func (s *LedgerService) Backup(ctx context.Context) (storage.Receipt, error) {
	if s.archive == nil {
		return storage.Receipt{}, ErrNoArchive
	}
	receipt, err := s.archive.Export(ctx, s.Snapshot())
	if err != nil {
		return storage.Receipt{}, fmt.Errorf("backup ledger: %w", err)
	}
	s.publish(ctx, amqp.EventBackupWritten, map[string]string{
		"path":  receipt.Path,
		"bytes": strconv.Itoa(receipt.Bytes),
	})
	return receipt, nil
}

// ExportBackup renders the full archive for download and records the backup
// time.
func (s *LedgerService) ExportBackup(ctx context.Context) ([]byte, error) {
	body, err := s.store.SerializeFullBackup(s.Snapshot())
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkBackup(ctx, s.opts.Now()); err != nil {
		return nil, err
	}
	s.publish(ctx, amqp.EventBackupWritten, map[string]string{
		"path":  "download",
		"bytes": strconv.Itoa(len(body)),
	})
	return body, nil
}

// Restore replaces the ledger with an archive of any known schema version.
func (s *LedgerService) Restore(ctx context.Context, archive []byte) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, stored, err := s.store.Restore(ctx, archive)
	if err != nil {
		return core.Document{}, fmt.Errorf("restore ledger: %w", err)
	}
	s.doc = doc
	s.stored = stored
	s.revision++
	slog.InfoContext(ctx, "Ledger restored from archive",
		"cards", len(doc.Cards),
		"expenses", len(doc.Expenses))
	return doc.Clone(), nil
}

// ExportStatement projects year/month and writes it to the spreadsheet.
func (s *LedgerService) ExportStatement(ctx context.Context, year int, month time.Month, filter ledger.Filter) (string, error) {
	if s.statements == nil {
		return "", ErrSheetsDisabled
	}
	st := s.Statement(year, month, filter)
	ref, err := s.statements.WriteStatement(ctx, st)
	if err != nil {
		return "", fmt.Errorf("export statement %s: %w", st.Period, err)
	}
	s.publish(ctx, amqp.EventStatementExport, map[string]string{
		"period": st.Period.String(),
		"filter": string(st.Filter),
		"ref":    ref,
		"lines":  strconv.Itoa(len(st.Lines)),
	})
	return ref, nil
}

// SyncCategories merges the externally maintained category list into the
// ledger and returns the labels that were added.
func (s *LedgerService) SyncCategories(ctx context.Context) ([]string, error) {
	if s.categories == nil {
		return nil, ErrSheetsDisabled
	}
	remote, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	added := []string{}
	err = s.mutate(ctx, "sync_categories", func(doc *core.Document) error {
		for _, c := range remote {
			c = strings.TrimSpace(c)
			if c == "" || slices.Contains(doc.Categories, c) {
				continue
			}
			doc.Categories = append(doc.Categories, c)
			added = append(added, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Categories synchronized", "remote", len(remote), "added", len(added))
	return added, nil
}

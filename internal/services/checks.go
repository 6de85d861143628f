// This file implements the Strategy Pattern for periodic maintenance checks.
// Each check kind has its own checker that decides, from the stored
// metadata, whether the operator needs to be told something.

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cardledger/internal/amqp"
	"cardledger/internal/storage"
)

type CheckKind string

const (
	CheckRollover CheckKind = "rollover"
	CheckBackup   CheckKind = "backup"
)

// MaintenanceChecker is the strategy interface for maintenance checks.
type MaintenanceChecker interface {
	// IsDue returns true if the operator should be notified.
	IsDue(meta storage.Meta, now time.Time) bool
}

// RolloverChecker reports a year change that has not been acknowledged yet.
type RolloverChecker struct{}

// IsDue returns true once the calendar year moved past the last seen year.
// A store that never recorded a year is not due.
func (RolloverChecker) IsDue(meta storage.Meta, now time.Time) bool {
	if meta.LastSeenYear == 0 {
		return false
	}
	return meta.LastSeenYear < now.Year()
}

// BackupChecker reports a missing or stale full backup.
type BackupChecker struct {
	StaleAfter time.Duration
}

// IsDue returns true if no backup was ever taken or the last one is older
// than StaleAfter.
func (c BackupChecker) IsDue(meta storage.Meta, now time.Time) bool {
	if meta.LastBackup.IsZero() {
		return true
	}
	return now.Sub(meta.LastBackup) > c.StaleAfter
}

// checkers maps check kinds to their strategies.
func (s *LedgerService) checkers() map[CheckKind]MaintenanceChecker {
	return map[CheckKind]MaintenanceChecker{
		CheckRollover: RolloverChecker{},
		CheckBackup:   BackupChecker{StaleAfter: s.opts.BackupStaleAfter},
	}
}

// RunCheck evaluates one maintenance check and publishes an event when it is
// due. It returns whether the check fired.
func (s *LedgerService) RunCheck(ctx context.Context, kind CheckKind) (bool, error) {
	checker, ok := s.checkers()[kind]
	if !ok {
		return false, fmt.Errorf("unknown maintenance check: %s", kind)
	}
	meta, err := s.store.Meta(ctx)
	if err != nil {
		return false, fmt.Errorf("read ledger metadata: %w", err)
	}
	now := s.opts.Now()

	if kind == CheckRollover && meta.LastSeenYear == 0 {
		// First run: start tracking from the current year.
		if err := s.store.MarkSeenYear(ctx, now.Year()); err != nil {
			return false, err
		}
		return false, nil
	}
	if !checker.IsDue(meta, now) {
		return false, nil
	}

	switch kind {
	case CheckRollover:
		slog.WarnContext(ctx, "Year rollover pending, purge of settled history suggested",
			"last_seen_year", meta.LastSeenYear,
			"year", now.Year())
		s.publish(ctx, amqp.EventRolloverPending, map[string]string{
			"last_seen_year": strconv.Itoa(meta.LastSeenYear),
			"year":           strconv.Itoa(now.Year()),
		})
	case CheckBackup:
		last := "never"
		if !meta.LastBackup.IsZero() {
			last = meta.LastBackup.Format(time.RFC3339)
		}
		slog.WarnContext(ctx, "Ledger backup is stale",
			"last_backup", last,
			"stale_after", s.opts.BackupStaleAfter)
		s.publish(ctx, amqp.EventBackupStale, map[string]string{
			"last_backup": last,
			"stale_after": s.opts.BackupStaleAfter.String(),
		})
	}
	return true, nil
}

func (s *LedgerService) CheckRollover(ctx context.Context) (bool, error) {
	return s.RunCheck(ctx, CheckRollover)
}

func (s *LedgerService) CheckBackup(ctx context.Context) (bool, error) {
	return s.RunCheck(ctx, CheckBackup)
}

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cardledger/internal/core"
)

// Receipt describes a written backup archive.
type Receipt struct {
	Path  string    `json:"path"`
	Bytes int       `json:"bytes"`
	At    time.Time `json:"at"`
}

// FileArchive writes full backups as JSON files into a directory and records
// the backup time in the store's metadata.
type FileArchive struct {
	store *DataStore
	dir   string
	now   func() time.Time
}

func NewFileArchive(store *DataStore, dir string) *FileArchive {
	return &FileArchive{store: store, dir: dir, now: time.Now}
}

// WithClock replaces the archive clock, for tests.
func (a *FileArchive) WithClock(now func() time.Time) *FileArchive {
	a.now = now
	return a
}

// Export writes doc to a new archive file. The file is written under a
// temporary name and renamed into place so a partial write never looks like
// a valid backup.
func (a *FileArchive) Export(ctx context.Context, doc core.Document) (Receipt, error) {
	body, err := a.store.SerializeFullBackup(doc)
	if err != nil {
		return Receipt{}, err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return Receipt{}, fmt.Errorf("create backup directory: %w", err)
	}

	at := a.now().UTC()
	name := fmt.Sprintf("cardledger-backup-%s.json", at.Format("20060102-150405.000"))
	path := filepath.Join(a.dir, name)

	tmp, err := os.CreateTemp(a.dir, ".backup-*.tmp")
	if err != nil {
		return Receipt{}, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return Receipt{}, fmt.Errorf("write backup file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Receipt{}, fmt.Errorf("sync backup file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Receipt{}, fmt.Errorf("close backup file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Receipt{}, fmt.Errorf("publish backup file: %w", err)
	}

	if err := a.store.MarkBackup(ctx, at); err != nil {
		return Receipt{}, err
	}

	slog.InfoContext(ctx, "Ledger backup written",
		"path", path,
		"bytes", len(body),
		"expenses", len(doc.Expenses))
	return Receipt{Path: path, Bytes: len(body), At: at}, nil
}

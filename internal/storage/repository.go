package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteBackend stores the document as a single row and the auxiliary
// scalars in a key/value table.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (r *SQLiteBackend) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteBackend) ReadDocument(ctx context.Context) ([]byte, int64, error) {
	var body []byte
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT body, version FROM ledger_document WHERE id = 1`).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("select document: %w", err)
	}
	return body, version, nil
}

// WriteDocument replaces the document if the stored version still equals
// expected. Version 0 means no document yet; AnyVersion skips the check.
func (r *SQLiteBackend) WriteDocument(ctx context.Context, body []byte, expected int64) (int64, error) {
	var (
		res  sql.Result
		err  error
		next = expected + 1
	)
	switch expected {
	case AnyVersion:
		err = r.db.QueryRowContext(ctx, `
			INSERT INTO ledger_document (id, body, version, updated_at) VALUES (1, ?, 1, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET body = excluded.body, version = ledger_document.version + 1,
				updated_at = excluded.updated_at
			RETURNING version`, body).Scan(&next)
	case 0:
		res, err = r.db.ExecContext(ctx, `
			INSERT INTO ledger_document (id, body, version, updated_at) VALUES (1, ?, 1, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO NOTHING`, body)
	default:
		res, err = r.db.ExecContext(ctx, `
			UPDATE ledger_document SET body = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			WHERE id = 1 AND version = ?`, body, expected)
	}
	if err != nil {
		return 0, fmt.Errorf("upsert document: %w", err)
	}
	if res != nil {
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("upsert document: %w", err)
		}
		if n == 0 {
			return 0, fmt.Errorf("%w: expected version %d", ErrStaleDocument, expected)
		}
	}
	slog.DebugContext(ctx, "Ledger document written to SQLite", "bytes", len(body), "version", next)
	return next, nil
}

func (r *SQLiteBackend) ReadMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM ledger_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select meta %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteBackend) WriteMeta(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_meta (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	if err != nil {
		return fmt.Errorf("upsert meta %s: %w", key, err)
	}
	return nil
}

// isStorageFull reports whether err is SQLite refusing a write for lack of
// space.
func isStorageFull(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_FULL
	}
	return false
}

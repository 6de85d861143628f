package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cardledger/internal/core"

	"github.com/shopspring/decimal"
)

// Auxiliary scalar keys stored next to the document.
const (
	MetaLastBackup   = "last_backup"
	MetaLastSeenYear = "last_seen_year"
)

// DefaultMaxBytes mirrors the quota of the browser storage the ledger format
// was born in.
const DefaultMaxBytes = 4_800_000

var (
	ErrCapacityExceeded = errors.New("storage capacity exceeded")
	// ErrStaleDocument rejects a write based on a version that is no longer
	// the stored one: another process saved in between.
	ErrStaleDocument = errors.New("stored document changed since it was loaded")
)

// AnyVersion writes without comparing versions.
const AnyVersion int64 = -1

var (
	DefaultCategories = []string{
		"Alimentação", "Mercado", "Água/Luz/Net", "Tributos",
		"Pets", "Moradia", "Lazer", "Viagens",
		"Educação", "Filhos", "Saúde", "Streaming", "Escritório",
		"Veículo: Combustível", "Veículo: Manutenção",
	}
	DefaultBeneficiaries = []string{"Geral"}
)

// Backend persists the raw document and a handful of scalars.
type Backend interface {
	// ReadDocument returns nil, version 0 and no error when nothing has
	// been stored.
	ReadDocument(ctx context.Context) ([]byte, int64, error)
	// WriteDocument stores body if the stored version equals expected and
	// returns the new version, or fails with ErrStaleDocument.
	WriteDocument(ctx context.Context, body []byte, expected int64) (int64, error)
	ReadMeta(ctx context.Context, key string) (string, bool, error)
	WriteMeta(ctx context.Context, key, value string) error
	Close() error
}

type Options struct {
	MaxBytes         int
	DefaultCardLimit decimal.Decimal
}

// Meta holds the auxiliary scalars.
type Meta struct {
	LastBackup   time.Time
	LastSeenYear int
}

// Usage reports the encoded document size against the configured capacity.
type Usage struct {
	Bytes    int `json:"bytes"`
	Capacity int `json:"capacity"`
}

// Percent returns the used share of capacity, 0 when capacity is unbounded.
func (u Usage) Percent() float64 {
	if u.Capacity <= 0 {
		return 0
	}
	return float64(u.Bytes) * 100 / float64(u.Capacity)
}

// DataStore owns the document lifecycle: load, upgrade, seed, save and
// backup serialization.
type DataStore struct {
	backend Backend
	opts    Options
}

func New(backend Backend, opts Options) *DataStore {
	if opts.DefaultCardLimit.IsZero() {
		opts.DefaultCardLimit = decimal.NewFromInt(5000)
	}
	return &DataStore{backend: backend, opts: opts}
}

// Seed returns the document an empty store starts with.
func Seed() core.Document {
	return core.Document{
		SchemaVersion: core.CurrentSchemaVersion,
		Cards:         []core.Card{},
		Expenses:      []core.Expense{},
		Categories:    append([]string(nil), DefaultCategories...),
		Beneficiaries: append([]string(nil), DefaultBeneficiaries...),
	}
}

// LoadSnapshot reads and upgrades the stored document. An empty store is
// seeded and the seed persisted.
func (s *DataStore) LoadSnapshot(ctx context.Context) (core.Document, error) {
	doc, _, err := s.LoadVersioned(ctx)
	return doc, err
}

// LoadVersioned is LoadSnapshot returning the stored version as well, for
// callers that save with SaveVersioned.
func (s *DataStore) LoadVersioned(ctx context.Context) (core.Document, int64, error) {
	doc, version, ok, err := s.read(ctx)
	if err != nil || ok {
		return doc, version, err
	}

	doc = Seed()
	slog.InfoContext(ctx, "Seeding empty ledger store",
		"categories", len(doc.Categories),
		"beneficiaries", len(doc.Beneficiaries))
	version, err = s.SaveVersioned(ctx, doc, 0)
	if errors.Is(err, ErrStaleDocument) {
		// Seeded concurrently by another process.
		doc, version, _, err = s.read(ctx)
	}
	if err != nil {
		return core.Document{}, 0, err
	}
	return doc, version, nil
}

// ReadSnapshot reads and upgrades the stored document without seeding. ok
// is false when nothing has been stored yet.
func (s *DataStore) ReadSnapshot(ctx context.Context) (doc core.Document, ok bool, err error) {
	doc, _, ok, err = s.read(ctx)
	return doc, ok, err
}

func (s *DataStore) read(ctx context.Context) (core.Document, int64, bool, error) {
	body, version, err := s.backend.ReadDocument(ctx)
	if err != nil {
		return core.Document{}, 0, false, fmt.Errorf("read document: %w", err)
	}
	if len(body) == 0 {
		return core.Document{}, 0, false, nil
	}

	doc, err := Decode(body, DecodeOptions{DefaultCardLimit: s.opts.DefaultCardLimit})
	if err != nil {
		return core.Document{}, 0, false, fmt.Errorf("decode document: %w", err)
	}
	if len(doc.Categories) == 0 {
		doc.Categories = append([]string(nil), DefaultCategories...)
	}
	if len(doc.Beneficiaries) == 0 {
		doc.Beneficiaries = append([]string(nil), DefaultBeneficiaries...)
	}
	slog.DebugContext(ctx, "Ledger document loaded",
		"bytes", len(body),
		"version", version,
		"cards", len(doc.Cards),
		"expenses", len(doc.Expenses))
	return doc, version, true, nil
}

// SaveSnapshot overwrites the stored document whatever its version.
func (s *DataStore) SaveSnapshot(ctx context.Context, doc core.Document) error {
	_, err := s.SaveVersioned(ctx, doc, AnyVersion)
	return err
}

// SaveVersioned writes doc if the stored version is still expected and
// returns the new version. Documents larger than the configured capacity,
// or rejected by the backend as full, fail with ErrCapacityExceeded; a
// concurrent save fails with ErrStaleDocument. Either way the previous
// version stays in place.
func (s *DataStore) SaveVersioned(ctx context.Context, doc core.Document, expected int64) (int64, error) {
	body, err := Encode(doc)
	if err != nil {
		return 0, fmt.Errorf("encode document: %w", err)
	}
	if s.opts.MaxBytes > 0 && len(body) > s.opts.MaxBytes {
		return 0, fmt.Errorf("%w: %d bytes over limit of %d", ErrCapacityExceeded, len(body), s.opts.MaxBytes)
	}
	version, err := s.backend.WriteDocument(ctx, body, expected)
	if err != nil {
		if errors.Is(err, ErrStaleDocument) {
			return 0, err
		}
		if errors.Is(err, ErrCapacityExceeded) || isStorageFull(err) {
			return 0, fmt.Errorf("%w: %v", ErrCapacityExceeded, err)
		}
		return 0, fmt.Errorf("write document: %w", err)
	}
	return version, nil
}

// SerializeFullBackup renders doc as a restorable, human-readable archive.
func (s *DataStore) SerializeFullBackup(doc core.Document) ([]byte, error) {
	doc = doc.Clone()
	doc.SchemaVersion = core.CurrentSchemaVersion
	normalize(&doc)
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize backup: %w", err)
	}
	return body, nil
}

// Restore decodes an archive of any known schema version and makes it the
// stored document whatever was stored before. It returns the new version.
func (s *DataStore) Restore(ctx context.Context, archive []byte) (core.Document, int64, error) {
	doc, err := Decode(archive, DecodeOptions{DefaultCardLimit: s.opts.DefaultCardLimit})
	if err != nil {
		return core.Document{}, 0, fmt.Errorf("decode backup: %w", err)
	}
	version, err := s.SaveVersioned(ctx, doc, AnyVersion)
	if err != nil {
		return core.Document{}, 0, err
	}
	return doc, version, nil
}

// Usage measures doc as it would be written.
func (s *DataStore) Usage(doc core.Document) (Usage, error) {
	body, err := Encode(doc)
	if err != nil {
		return Usage{}, fmt.Errorf("encode document: %w", err)
	}
	return Usage{Bytes: len(body), Capacity: s.opts.MaxBytes}, nil
}

func (s *DataStore) Meta(ctx context.Context) (Meta, error) {
	var m Meta
	raw, ok, err := s.backend.ReadMeta(ctx, MetaLastBackup)
	if err != nil {
		return Meta{}, fmt.Errorf("read %s: %w", MetaLastBackup, err)
	}
	if ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			m.LastBackup = time.UnixMilli(ms).UTC()
		}
	}
	raw, ok, err = s.backend.ReadMeta(ctx, MetaLastSeenYear)
	if err != nil {
		return Meta{}, fmt.Errorf("read %s: %w", MetaLastSeenYear, err)
	}
	if ok {
		if y, err := strconv.Atoi(raw); err == nil {
			m.LastSeenYear = y
		}
	}
	return m, nil
}

// MarkBackup records the time of the latest full backup.
func (s *DataStore) MarkBackup(ctx context.Context, at time.Time) error {
	if err := s.backend.WriteMeta(ctx, MetaLastBackup, strconv.FormatInt(at.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("write %s: %w", MetaLastBackup, err)
	}
	return nil
}

// MarkSeenYear acknowledges a year rollover.
func (s *DataStore) MarkSeenYear(ctx context.Context, year int) error {
	if err := s.backend.WriteMeta(ctx, MetaLastSeenYear, strconv.Itoa(year)); err != nil {
		return fmt.Errorf("write %s: %w", MetaLastSeenYear, err)
	}
	return nil
}

func (s *DataStore) Close() error {
	return s.backend.Close()
}

package backend

import (
	"context"

	"cardledger/internal/amqp"
	"cardledger/internal/services"
	"cardledger/internal/storage"
)

// CleanupFunc releases resources acquired while building a backend.
type CleanupFunc func() error

// Result holds everything a process needs to construct a LedgerService.
type Result struct {
	Store   *storage.DataStore
	Archive *storage.FileArchive
	// Events is nil when no broker is configured.
	Events  *amqp.Client
	Deps    services.Deps
	Cleanup CleanupFunc
}

// Factory builds the storage and outbound adapters for a configuration.
type Factory interface {
	Create(ctx context.Context, cfg Config) (*Result, error)
}

// BackendType names the document storage engine.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

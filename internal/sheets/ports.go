package sheets

import (
	"context"

	"cardledger/internal/ledger"
)

// Ports for outbound spreadsheet adapters.
type (
	// StatementWriter publishes a monthly statement and returns a reference
	// to where it landed.
	StatementWriter interface {
		WriteStatement(ctx context.Context, st ledger.Statement) (ref string, err error)
	}

	// CategoryReader lists category labels maintained outside the ledger.
	CategoryReader interface {
		ListCategories(ctx context.Context) ([]string, error)
	}
)

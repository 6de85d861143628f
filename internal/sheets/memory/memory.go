package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cardledger/internal/ledger"
	ports "cardledger/internal/sheets"
)

var (
	_ ports.StatementWriter = (*Store)(nil)
	_ ports.CategoryReader  = (*Store)(nil)
)

// Store keeps exported statements in memory. It stands in for the Google
// Sheets client in development and tests.
type Store struct {
	mu         sync.Mutex
	cats       []string
	statements map[string]ledger.Statement
	order      []string
}

func New(cats []string) *Store {
	return &Store{cats: dedupe(cats), statements: map[string]ledger.Statement{}}
}

// WriteStatement stores st under its period and filter, replacing any
// previous export of the same statement.
func (s *Store) WriteStatement(_ context.Context, st ledger.Statement) (string, error) {
	ref := fmt.Sprintf("mem:%s:%s", st.Period, st.Filter)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statements[ref]; !ok {
		s.order = append(s.order, ref)
	}
	s.statements[ref] = st
	return ref, nil
}

// Statement returns a previously written statement.
func (s *Store) Statement(ref string) (ledger.Statement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statements[ref]
	return st, ok
}

// Refs lists written statements in first-write order.
func (s *Store) Refs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cats...), nil
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

package memory

import (
	"context"
	"testing"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/ledger"
)

func TestMemoryStoreStatements(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	st := ledger.Statement{Period: core.NewPeriod(2025, time.May), Filter: ledger.FilterAll}

	ref, err := s.WriteStatement(ctx, st)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if ref != "mem:2025-05:ALL" {
		t.Errorf("ref = %q", ref)
	}
	if _, err := s.WriteStatement(ctx, st); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if refs := s.Refs(); len(refs) != 1 {
		t.Errorf("rewrite should replace, refs = %v", refs)
	}
	got, ok := s.Statement(ref)
	if !ok || got.Period != st.Period {
		t.Errorf("statement lookup = %+v, %v", got, ok)
	}
}

func TestMemoryStoreCategories(t *testing.T) {
	s := New([]string{"Pets", " Lazer", "Pets", ""})
	cats, err := s.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 2 || cats[0] != "Pets" || cats[1] != "Lazer" {
		t.Errorf("cats = %v", cats)
	}
}

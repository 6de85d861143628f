package google

import (
	"context"
	"testing"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/ledger"

	"github.com/shopspring/decimal"
)

func sampleStatement() ledger.Statement {
	due, _ := core.ParseDate("2025-03-10")
	return ledger.Statement{
		Period: core.NewPeriod(2025, time.March),
		Filter: ledger.FilterAll,
		Lines: []ledger.Line{
			{Description: "TV", CardName: "Nubank", Note: "2/10", Amount: decimal.RequireFromString("120"), DueDate: due, Risk: ledger.RiskSafe},
			{Description: "Luz", Note: "Recorrente", Amount: decimal.RequireFromString("99.5"), DueDate: due, Paid: true, Risk: ledger.RiskSettled, Estimate: true},
		},
		Total:     decimal.RequireFromString("219.5"),
		TotalPaid: decimal.RequireFromString("99.5"),
		TotalDue:  decimal.RequireFromString("120"),
	}
}

func TestStatementRows(t *testing.T) {
	rows := statementRows(sampleStatement())
	if len(rows) != 1+2+4 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "Vencimento" {
		t.Errorf("header = %v", rows[0])
	}
	first := toStrings(rows[1])
	want := []string{"2025-03-10", "TV", "Nubank", "2/10", "120.00", "Não", "safe", "Não"}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("col %d = %q, want %q", i, first[i], want[i])
		}
	}
	second := toStrings(rows[2])
	if second[2] != "Dinheiro/Boleto" || second[5] != "Sim" || second[7] != "Sim" {
		t.Errorf("cash row = %v", second)
	}
	if len(rows[3]) != 0 {
		t.Errorf("expected blank separator, got %v", rows[3])
	}
	if got := toStrings(rows[6]); got[0] != "A pagar" || got[4] != "120.00" {
		t.Errorf("due row = %v", got)
	}
}

func TestStatementTitle(t *testing.T) {
	st := sampleStatement()
	if got := statementTitle("Faturas", st); got != "2025-03 Faturas" {
		t.Errorf("title = %q", got)
	}
	st.Filter = ledger.FilterCash
	if got := statementTitle(" Faturas ", st); got != "2025-03 Faturas CASH" {
		t.Errorf("title = %q", got)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Categorias", 2025, "2025 Categorias"},
		{"2024 Categorias", 2025, "2024 Categorias"},
		{"", 2025, ""},
		{"  Faturas ", 2026, "2026 Faturas"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestUniqueLabels(t *testing.T) {
	values := [][]any{{"Mercado"}, {}, {" Lazer "}, {"# comentário"}, {"Mercado"}, {""}, {"Pets", "ignored"}}
	got := uniqueLabels(values)
	want := []string{"Mercado", "Lazer", "Pets"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClientWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.WriteStatement(context.Background(), sampleStatement()); err == nil {
		t.Error("expected error without service")
	}
	if _, err := c.ListCategories(context.Background()); err == nil {
		t.Error("expected error without service")
	}
}

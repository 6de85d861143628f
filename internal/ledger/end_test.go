package ledger

import (
	"testing"
	"time"

	"cardledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectedEnd(t *testing.T) {
	tests := []struct {
		name    string
		expense core.Expense
		kind    EndKind
		period  string
	}{
		{"installments", testExpense("a", core.TypeCardInstallment, 100, "2025-03-15", 10, "c"), EndKnown, "2026-01"},
		{"one time", testExpense("b", core.TypeCash, 100, "2025-12-01", 1, ""), EndKnown, "2026-01"},
		{"recurring", testExpense("c", core.TypeRecurring, 100, "2025-03-15", 1, ""), EndIndeterminate, ""},
		{"bad date", testExpense("d", core.TypeCardInstallment, 100, "2025-13-01", 4, "c"), EndInvalid, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectedEnd(tt.expense)
			assert.Equal(t, tt.kind, got.Kind)
			if tt.period == "" {
				assert.Nil(t, got.Period)
				return
			}
			require.NotNil(t, got.Period)
			assert.Equal(t, tt.period, got.Period.String())
		})
	}
}

func TestDebts(t *testing.T) {
	long := testExpense("long", core.TypeCardInstallment, 1000, "2025-01-01", 10, "c")
	long.PaidPeriods = long.PaidPeriods.Add(period(2025, time.January))
	short := testExpense("short", core.TypeInvoiceInstallment, 300, "2025-02-01", 3, "")
	done := testExpense("done", core.TypeCardInstallment, 100, "2025-01-01", 1, "c")
	done.PaidPeriods = done.PaidPeriods.Add(period(2025, time.January))

	doc := &core.Document{
		Cards: []core.Card{testCard("c", 5, 10, 1000)},
		Expenses: []core.Expense{
			long, short, done,
			testExpense("cash", core.TypeCash, 50, "2025-01-01", 1, ""),
		},
	}

	debts := Debts(doc)
	require.Len(t, debts, 2)
	assert.Equal(t, "short", debts[0].ExpenseID)
	assert.Equal(t, "long", debts[1].ExpenseID)
	assert.Equal(t, "Card c", debts[1].CardName)
	assert.Equal(t, 1, debts[1].Paid)
	assert.InDelta(t, 10.0, debts[1].Progress, 0.001)
	assert.True(t, debts[1].Remaining.Equal(dec("900")))
}

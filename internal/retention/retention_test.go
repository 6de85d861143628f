package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct {
	err   error
	calls int
	seen  int
}

func (f *fakeExporter) Export(_ context.Context, doc core.Document) (storage.Receipt, error) {
	f.calls++
	f.seen = len(doc.Expenses)
	if f.err != nil {
		return storage.Receipt{}, f.err
	}
	return storage.Receipt{Path: "/backups/pre-purge.json", Bytes: 42, At: time.Unix(0, 0)}, nil
}

type fakeSaver struct {
	err   error
	saved *core.Document
}

func (f *fakeSaver) SaveSnapshot(_ context.Context, doc core.Document) error {
	if f.err != nil {
		return f.err
	}
	f.saved = &doc
	return nil
}

func expense(id string, typ core.ExpenseType, origin string, n, paid int) core.Expense {
	e := core.Expense{
		ID: id, Description: id, Value: decimal.NewFromInt(1200), Type: typ,
		OriginDate: origin, Installments: n,
		PaidPeriods: core.PeriodSet{}, Paused: core.PeriodSet{}, Variations: map[string]decimal.Decimal{},
	}
	start := core.NewPeriod(2024, time.January)
	for i := 0; i < paid; i++ {
		e.PaidPeriods = e.PaidPeriods.Add(start.AddMonths(i))
	}
	return e
}

func scenarioDoc() *core.Document {
	return &core.Document{Expenses: []core.Expense{
		expense("A", core.TypeCash, "2023-05-01", 1, 0),
		expense("B", core.TypeCardInstallment, "2024-01-01", 12, 12),
		expense("C", core.TypeCardInstallment, "2024-01-01", 12, 5),
	}}
}

func TestPurgeScenario(t *testing.T) {
	doc := scenarioDoc()
	exp := &fakeExporter{}
	saver := &fakeSaver{}

	res, err := NewPurger(exp, saver).Purge(context.Background(), doc, 2025)
	require.NoError(t, err)

	assert.Equal(t, 1, exp.calls)
	assert.Equal(t, 3, exp.seen, "export sees the pre-purge document")
	assert.Equal(t, 1, res.Kept)
	assert.Equal(t, 2, res.Removed)
	assert.ElementsMatch(t, []string{"A", "B"}, res.RemovedIDs)
	assert.Equal(t, "/backups/pre-purge.json", res.Receipt.Path)

	require.Len(t, doc.Expenses, 1)
	assert.Equal(t, "C", doc.Expenses[0].ID)
	require.NotNil(t, saver.saved)
	assert.Len(t, saver.saved.Expenses, 1)
}

func TestKeep(t *testing.T) {
	terminated := expense("rt", core.TypeRecurring, "2020-01-01", 1, 0)
	end := core.NewPeriod(2023, time.June)
	terminated.Termination = &end

	tests := []struct {
		name string
		e    core.Expense
		want bool
	}{
		{"current year", expense("a", core.TypeCash, "2025-01-01", 1, 0), true},
		{"future", expense("b", core.TypeCash, "2026-03-01", 1, 0), true},
		{"old one time", expense("c", core.TypeCard, "2024-12-31", 1, 0), false},
		{"open recurring", expense("d", core.TypeRecurring, "2019-01-01", 1, 0), true},
		{"terminated recurring", terminated, false},
		{"unpaid invoice installments", expense("e", core.TypeInvoiceInstallment, "2022-01-01", 48, 40), true},
		{"settled installments", expense("f", core.TypeCardInstallment, "2022-01-01", 6, 6), false},
		{"unparsable origin", expense("g", core.TypeCash, "01/01/2020", 1, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keep(tt.e, 2025))
		})
	}
}

func TestPurgeNeverRemovesOpenObligations(t *testing.T) {
	var all []core.Expense
	for _, typ := range []core.ExpenseType{core.TypeCash, core.TypeCard, core.TypeCardInstallment, core.TypeInvoiceInstallment, core.TypeRecurring} {
		for _, origin := range []string{"2018-07-15", "2023-12-31", "2025-01-01"} {
			for paid := 0; paid <= 4; paid++ {
				n := 1
				if typ.IsInstallment() {
					n = 4
				}
				all = append(all, expense(string(typ)+origin, typ, origin, n, paid))
			}
		}
	}

	plan := PlanPurge(all, 2025)
	assert.Equal(t, len(all), len(plan.Kept)+len(plan.Removed))
	for _, e := range plan.Removed {
		assert.False(t, Open(e), "removed open obligation %s", e.ID)
	}
	require.NoError(t, Verify(plan.Removed))
}

func TestPurgeExportFailureLeavesDocumentUntouched(t *testing.T) {
	doc := scenarioDoc()
	saver := &fakeSaver{}

	_, err := NewPurger(&fakeExporter{err: errors.New("disk gone")}, saver).Purge(context.Background(), doc, 2025)
	require.ErrorIs(t, err, ErrExportFailed)
	assert.Len(t, doc.Expenses, 3)
	assert.Nil(t, saver.saved)
}

func TestPurgeSaveFailureIsNotDurable(t *testing.T) {
	doc := scenarioDoc()
	saveErr := errors.New("quota")

	res, err := NewPurger(&fakeExporter{}, &fakeSaver{err: saveErr}).Purge(context.Background(), doc, 2025)
	require.ErrorIs(t, err, ErrNotDurable)
	assert.ErrorIs(t, err, saveErr)
	assert.Equal(t, 2, res.Removed)
	assert.Len(t, doc.Expenses, 1, "in-memory reduction stays applied")
}

func TestPurgeWithNothingToRemoveSkipsExport(t *testing.T) {
	doc := &core.Document{Expenses: []core.Expense{expense("new", core.TypeCash, "2025-02-01", 1, 0)}}
	exp := &fakeExporter{}
	saver := &fakeSaver{}

	res, err := NewPurger(exp, saver).Purge(context.Background(), doc, 2025)
	require.NoError(t, err)
	assert.Zero(t, res.Removed)
	assert.Zero(t, exp.calls)
	assert.Nil(t, saver.saved)
}

func TestVerifyFlagsOpenObligation(t *testing.T) {
	err := Verify([]core.Expense{
		expense("ok", core.TypeCash, "2020-01-01", 1, 0),
		expense("live", core.TypeCardInstallment, "2020-01-01", 10, 3),
	})
	require.ErrorIs(t, err, ErrInvariantViolation)
	assert.Contains(t, err.Error(), "live")
}

package ledger

import (
	"slices"

	"cardledger/internal/core"

	"github.com/shopspring/decimal"
)

const (
	EndKnown         EndKind = "known"
	EndIndeterminate EndKind = "indeterminate"
	EndInvalid       EndKind = "invalid"
)

type (
	EndKind string

	// EndEstimate is when an obligation stops producing lines. Period is set
	// only for EndKnown.
	EndEstimate struct {
		Kind   EndKind      `json:"kind"`
		Period *core.Period `json:"period,omitempty"`
	}

	// Debt summarizes an open installment obligation.
	Debt struct {
		ExpenseID   string          `json:"expenseId"`
		Description string          `json:"description"`
		CardName    string          `json:"cardName,omitempty"`
		Paid        int             `json:"paid"`
		Total       int             `json:"total"`
		Remaining   decimal.Decimal `json:"remaining"`
		End         EndEstimate     `json:"end"`
		Progress    float64         `json:"progress"`
	}
)

// ProjectedEnd estimates the end of e as origin period plus installment
// count.
func ProjectedEnd(e core.Expense) EndEstimate {
	if e.Type == core.TypeRecurring {
		return EndEstimate{Kind: EndIndeterminate}
	}
	origin, err := e.Origin()
	if err != nil {
		return EndEstimate{Kind: EndInvalid}
	}
	end := origin.Period().AddMonths(e.InstallmentCount())
	return EndEstimate{Kind: EndKnown, Period: &end}
}

// Debts lists unsettled installment expenses, earliest end first.
func Debts(doc *core.Document) []Debt {
	out := []Debt{}
	for _, e := range doc.Expenses {
		if !e.Type.IsInstallment() || IsSettled(e) {
			continue
		}
		d := Debt{
			ExpenseID:   e.ID,
			Description: e.Description,
			Paid:        e.PaidCount(),
			Total:       e.InstallmentCount(),
			Remaining:   Remaining(e),
			End:         ProjectedEnd(e),
		}
		if card, ok := boundCard(doc, e); ok {
			d.CardName = card.Name
		}
		d.Progress = float64(d.Paid) * 100 / float64(d.Total)
		out = append(out, d)
	}
	slices.SortStableFunc(out, func(a, b Debt) int {
		switch {
		case a.End.Period == nil && b.End.Period == nil:
			return 0
		case a.End.Period == nil:
			return 1
		case b.End.Period == nil:
			return -1
		}
		return a.End.Period.Compare(*b.End.Period)
	})
	return out
}

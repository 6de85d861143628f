package ledger

import (
	"cardledger/internal/core"

	"github.com/shopspring/decimal"
)

// LimitStatus is a card's credit utilization.
type LimitStatus struct {
	CardID    string          `json:"cardId"`
	Total     decimal.Decimal `json:"total"`
	Used      decimal.Decimal `json:"used"`
	Available decimal.Decimal `json:"available"`
}

// CardLimit sums the unpaid remainder of every non-recurring expense bound
// to the card. Available goes negative when the card is over its limit. An
// unknown card yields zeros.
func CardLimit(doc *core.Document, cardID string) LimitStatus {
	st := LimitStatus{CardID: cardID, Total: decimal.Zero, Used: decimal.Zero, Available: decimal.Zero}
	card, ok := doc.Card(cardID)
	if !ok {
		return st
	}
	st.Total = card.Limit
	for _, e := range doc.Expenses {
		if e.CardID != cardID || e.Type == core.TypeRecurring {
			continue
		}
		if r := Remaining(e); r.IsPositive() {
			st.Used = st.Used.Add(r)
		}
	}
	st.Available = st.Total.Sub(st.Used)
	return st
}

// Remaining is the unpaid part of an installment-bearing or one-time
// expense, value × (n − paid) / n. Recurring expenses have no remainder.
func Remaining(e core.Expense) decimal.Decimal {
	if e.Type == core.TypeRecurring {
		return decimal.Zero
	}
	n := int64(e.InstallmentCount())
	open := n - int64(e.PaidCount())
	if open <= 0 {
		return decimal.Zero
	}
	return e.Value.Mul(decimal.NewFromInt(open)).Div(decimal.NewFromInt(n))
}

// IsSettled reports whether a non-recurring expense has every installment
// paid. Recurring expenses are never settled.
func IsSettled(e core.Expense) bool {
	if e.Type == core.TypeRecurring {
		return false
	}
	return e.PaidCount() >= e.InstallmentCount()
}

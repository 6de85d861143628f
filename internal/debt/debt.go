// Package debt moves obligations between cards.
package debt

import (
	"errors"
	"fmt"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/ledger"

	"github.com/shopspring/decimal"
)

var ErrInvalidTarget = errors.New("invalid migration target")

const (
	AcceleratedSuffix     = " (Antecipado)"
	AccelerationPrefix    = "Antecipação: "
	AccelerationCategory  = "Tributos"
	AccelerationRecipient = "Geral"
)

// Acceleration describes the effect of cancelling a card with its future
// installments brought forward.
type Acceleration struct {
	Closed []string        `json:"closed"`
	Total  decimal.Decimal `json:"total"`
	Charge *core.Expense   `json:"charge,omitempty"`
}

// Migrate rebinds every expense on source to target and returns how many
// moved. Paid and period state is left as is. With archive set the source
// card is cancelled. The target must be an active card other than source,
// otherwise nothing changes and ErrInvalidTarget is returned.
func Migrate(doc *core.Document, source, target string, archive bool) (int, error) {
	if source == target {
		return 0, fmt.Errorf("%w: source and target are the same card", ErrInvalidTarget)
	}
	to, ok := doc.Card(target)
	if !ok {
		return 0, fmt.Errorf("%w: card %s not found", ErrInvalidTarget, target)
	}
	if to.Status != core.CardActive {
		return 0, fmt.Errorf("%w: card %s is %s", ErrInvalidTarget, target, to.Status)
	}

	affected := 0
	for i := range doc.Expenses {
		if doc.Expenses[i].CardID == source {
			doc.Expenses[i].CardID = target
			affected++
		}
	}
	if archive {
		if from, ok := doc.Card(source); ok {
			from.Status = core.CardCancelled
		}
	}
	return affected, nil
}

// CancelCard soft-deletes a card. With accelerate, each open card
// installment on it is closed at its paid count and the unpaid remainder is
// charged as one cash expense dated today.
func CancelCard(doc *core.Document, cardID string, accelerate bool, today time.Time) (Acceleration, error) {
	card, ok := doc.Card(cardID)
	if !ok {
		return Acceleration{}, fmt.Errorf("card %s: %w", cardID, core.ErrNotFound)
	}

	acc := Acceleration{Closed: []string{}, Total: decimal.Zero}
	if accelerate {
		var charge *core.Expense
		total := decimal.Zero
		for _, e := range doc.Expenses {
			if e.CardID == cardID && e.Type == core.TypeCardInstallment && !ledger.IsSettled(e) {
				total = total.Add(ledger.Remaining(e))
			}
		}
		total = total.Round(2)
		if total.IsPositive() {
			c, err := core.NewExpense(core.ExpenseInput{
				Description: AccelerationPrefix + card.Name,
				Value:       core.FormatAmount(total),
				Type:        core.TypeCash,
				Category:    AccelerationCategory,
				Beneficiary: AccelerationRecipient,
				Date:        core.Date{Time: today}.String(),
			})
			if err != nil {
				return Acceleration{}, fmt.Errorf("build acceleration charge: %w", err)
			}
			charge = &c
		}

		for i := range doc.Expenses {
			e := &doc.Expenses[i]
			if e.CardID != cardID || e.Type != core.TypeCardInstallment || ledger.IsSettled(*e) {
				continue
			}
			closeAtPaid(doc, e)
			acc.Closed = append(acc.Closed, e.ID)
		}
		if charge != nil {
			doc.Expenses = append(doc.Expenses, *charge)
			acc.Charge = charge
		}
		acc.Total = total
	}
	card.Status = core.CardCancelled
	return acc, nil
}

// closeAtPaid shrinks e to the installments already paid, keeping the
// per-installment amount of those periods unchanged.
func closeAtPaid(doc *core.Document, e *core.Expense) {
	n := e.InstallmentCount()
	paid := e.PaidCount()
	e.Description += AcceleratedSuffix
	if paid == 0 {
		// Nothing was paid: leave a settled zero-value line in its first
		// period so the record stays visible until the next purge.
		e.Value = decimal.Zero
		e.Installments = 1
		if origin, err := e.Origin(); err == nil {
			e.PaidPeriods = core.PeriodSet{}.Add(ledger.FirstPeriod(doc, *e, origin))
		}
		return
	}
	e.Value = e.Value.Mul(decimal.NewFromInt(int64(paid))).Div(decimal.NewFromInt(int64(n)))
	e.Installments = paid
}

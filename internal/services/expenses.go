package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/importer"
	"cardledger/internal/ledger"

	"github.com/shopspring/decimal"
)

const (
	DefaultImportCategory    = "Outros"
	DefaultImportBeneficiary = "Geral"
)

// ImportRequest scrapes Text as a statement of CardID dated in Year.
type ImportRequest struct {
	Text        string `json:"text"`
	Year        int    `json:"year"`
	CardID      string `json:"cardId"`
	Category    string `json:"category"`
	Beneficiary string `json:"beneficiary"`
}

// Rejection is a draft that failed expense construction.
type Rejection struct {
	Draft  importer.Draft `json:"draft"`
	Reason string         `json:"reason"`
}

type ImportResult struct {
	Imported []core.Expense `json:"imported"`
	Rejected []Rejection    `json:"rejected"`
}

// AddExpense validates in and appends the new expense. A card id, when
// given, must name an existing card that is not cancelled.
func (s *LedgerService) AddExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	e, err := core.NewExpense(in)
	if err != nil {
		return core.Expense{}, fmt.Errorf("new expense: %w", err)
	}
	err = s.mutate(ctx, "add_expense", func(doc *core.Document) error {
		if err := checkCard(doc, e.CardID); err != nil {
			return err
		}
		doc.Expenses = append(doc.Expenses, e)
		return nil
	})
	if err != nil {
		return e, err
	}
	slog.InfoContext(ctx, "Expense added",
		"id", e.ID,
		"type", e.Type,
		"card_id", e.CardID,
		"installments", e.Installments)
	return e, nil
}

// ImportDrafts scrapes req.Text and adds every draft that passes
// construction as a one-time purchase on req.CardID. Rejected drafts are
// reported, not fatal.
func (s *LedgerService) ImportDrafts(ctx context.Context, req ImportRequest) (ImportResult, error) {
	if req.Year == 0 {
		req.Year = s.opts.Now().Year()
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = DefaultImportCategory
	}
	beneficiary := strings.TrimSpace(req.Beneficiary)
	if beneficiary == "" {
		beneficiary = DefaultImportBeneficiary
	}

	res := ImportResult{Imported: []core.Expense{}, Rejected: []Rejection{}}
	for _, d := range importer.Parse(req.Text, req.Year) {
		e, err := core.NewExpense(d.Input(req.CardID, category, beneficiary))
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Draft: d, Reason: err.Error()})
			continue
		}
		res.Imported = append(res.Imported, e)
	}
	if len(res.Imported) == 0 {
		return res, nil
	}

	err := s.mutate(ctx, "import", func(doc *core.Document) error {
		if err := checkCard(doc, req.CardID); err != nil {
			return err
		}
		doc.Expenses = append(doc.Expenses, res.Imported...)
		return nil
	})
	if err != nil && !isNotDurable(err) {
		return ImportResult{}, err
	}
	slog.InfoContext(ctx, "Statement text imported",
		"card_id", req.CardID,
		"imported", len(res.Imported),
		"rejected", len(res.Rejected))
	return res, err
}

// TogglePaid flips the paid mark of expense id in period p and returns the
// new state.
func (s *LedgerService) TogglePaid(ctx context.Context, id string, p core.Period) (bool, error) {
	var paid bool
	err := s.mutate(ctx, "toggle_paid", func(doc *core.Document) error {
		e, err := applicableExpense(doc, id, p)
		if err != nil {
			return err
		}
		if e.PaidPeriods.Has(p) {
			e.PaidPeriods = e.PaidPeriods.Remove(p)
		} else {
			e.PaidPeriods = e.PaidPeriods.Add(p)
			paid = true
		}
		return nil
	})
	return paid, err
}

// PayStatement marks every unpaid line of the statement for year/month and
// filter as paid. It returns how many lines changed.
func (s *LedgerService) PayStatement(ctx context.Context, year int, month time.Month, filter ledger.Filter) (int, error) {
	changed := 0
	err := s.mutate(ctx, "pay_statement", func(doc *core.Document) error {
		st := ledger.Project(doc, core.NewPeriod(year, month), filter, s.opts.Now())
		for _, line := range st.Lines {
			if line.Paid {
				continue
			}
			e, ok := doc.Expense(line.ExpenseID)
			if !ok {
				continue
			}
			e.PaidPeriods = e.PaidPeriods.Add(line.Period)
			changed++
		}
		return nil
	})
	if err == nil {
		slog.InfoContext(ctx, "Statement paid",
			"period", core.NewPeriod(year, month),
			"filter", filter,
			"lines", changed)
	}
	return changed, err
}

// ConfirmValue records the actual amount of a recurring expense for p and
// marks that period paid.
func (s *LedgerService) ConfirmValue(ctx context.Context, id string, p core.Period, value string) (core.Expense, error) {
	amount, err := core.ParseAmount(value)
	if err != nil {
		return core.Expense{}, err
	}
	var out core.Expense
	err = s.mutate(ctx, "confirm_value", func(doc *core.Document) error {
		e, err := applicableExpense(doc, id, p)
		if err != nil {
			return err
		}
		if e.Type != core.TypeRecurring {
			return fmt.Errorf("expense %s: %w", id, core.ErrNotRecurring)
		}
		if e.Variations == nil {
			e.Variations = map[string]decimal.Decimal{}
		}
		e.Variations[p.String()] = amount
		e.PaidPeriods = e.PaidPeriods.Add(p)
		out = *e
		return nil
	})
	return out, err
}

// PauseRecurring suppresses a recurring expense for one period.
func (s *LedgerService) PauseRecurring(ctx context.Context, id string, p core.Period) error {
	return s.mutate(ctx, "pause_recurring", func(doc *core.Document) error {
		e, err := recurringExpense(doc, id)
		if err != nil {
			return err
		}
		e.Paused = e.Paused.Add(p)
		e.PaidPeriods = e.PaidPeriods.Remove(p)
		return nil
	})
}

// TerminateRecurring ends a recurring expense so that p is the first period
// without a line.
func (s *LedgerService) TerminateRecurring(ctx context.Context, id string, p core.Period) error {
	err := s.mutate(ctx, "terminate_recurring", func(doc *core.Document) error {
		e, err := recurringExpense(doc, id)
		if err != nil {
			return err
		}
		last := p.AddMonths(-1)
		e.Termination = &last
		return nil
	})
	if err == nil {
		slog.InfoContext(ctx, "Recurring expense terminated", "id", id, "from", p)
	}
	return err
}

func applicableExpense(doc *core.Document, id string, p core.Period) (*core.Expense, error) {
	e, ok := doc.Expense(id)
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if !ledger.Applies(doc, *e, p) {
		return nil, fmt.Errorf("expense %s in %s: %w", id, p, ErrNotApplicable)
	}
	return e, nil
}

func recurringExpense(doc *core.Document, id string) (*core.Expense, error) {
	e, ok := doc.Expense(id)
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if e.Type != core.TypeRecurring {
		return nil, fmt.Errorf("expense %s: %w", id, core.ErrNotRecurring)
	}
	return e, nil
}

func checkCard(doc *core.Document, cardID string) error {
	if cardID == "" {
		return nil
	}
	c, ok := doc.Card(cardID)
	if !ok {
		return fmt.Errorf("card %s: %w", cardID, core.ErrNotFound)
	}
	if c.Status == core.CardCancelled {
		return fmt.Errorf("card %s: %w", cardID, ErrCardCancelled)
	}
	return nil
}

// Package ledger projects expenses onto calendar months. Every function is a
// pure computation over the document passed in.
package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"cardledger/internal/core"

	"github.com/shopspring/decimal"
)

const (
	FilterAll  Filter = "ALL"
	FilterCash Filter = "CASH"
)

const (
	RiskSettled  Risk = "settled"
	RiskCritical Risk = "critical"
	RiskWarning  Risk = "warning"
	RiskSafe     Risk = "safe"
)

const (
	NoteSingle    = "À Vista"
	NoteRecurring = "Recorrente"
)

type (
	// Filter selects the statement bucket: every expense, one card, or the
	// cash/invoice bucket of expenses bound to no card.
	Filter string

	Risk string

	// Line is one month's occurrence of an expense.
	Line struct {
		ExpenseID    string           `json:"expenseId"`
		Description  string           `json:"description"`
		Type         core.ExpenseType `json:"type"`
		CardID       string           `json:"cardId,omitempty"`
		CardName     string           `json:"cardName,omitempty"`
		Category     string           `json:"category,omitempty"`
		Beneficiary  string           `json:"beneficiary,omitempty"`
		Period       core.Period      `json:"period"`
		Amount       decimal.Decimal  `json:"amount"`
		DueDate      core.Date        `json:"dueDate"`
		DaysUntilDue int              `json:"daysUntilDue"`
		Paid         bool             `json:"paid"`
		Risk         Risk             `json:"risk"`
		Note         string           `json:"note"`
		Estimate     bool             `json:"estimate"`
	}

	// Statement is the projection of a document onto one period.
	Statement struct {
		Period    core.Period     `json:"period"`
		Filter    Filter          `json:"filter"`
		Lines     []Line          `json:"lines"`
		Total     decimal.Decimal `json:"total"`
		TotalPaid decimal.Decimal `json:"totalPaid"`
		TotalDue  decimal.Decimal `json:"totalDue"`
		// Invalid lists expenses skipped because their origin date does not
		// parse.
		Invalid []string `json:"invalid,omitempty"`
	}
)

// ParseFilter maps user input to a filter. Empty input means FilterAll.
func ParseFilter(s string) Filter {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", string(FilterAll):
		return FilterAll
	case string(FilterCash):
		return FilterCash
	}
	return Filter(s)
}

// Match reports whether e belongs to the filter's bucket.
func (f Filter) Match(e core.Expense) bool {
	switch f {
	case FilterAll, "":
		return true
	case FilterCash:
		return e.CardID == ""
	}
	return e.CardID == string(f)
}

// Project builds the statement for period p. today drives the risk
// classification.
func Project(doc *core.Document, p core.Period, filter Filter, today time.Time) Statement {
	st := Statement{
		Period:    p,
		Filter:    filter,
		Lines:     []Line{},
		Total:     decimal.Zero,
		TotalPaid: decimal.Zero,
	}
	for _, e := range doc.Expenses {
		if !filter.Match(e) {
			continue
		}
		origin, err := e.Origin()
		if err != nil {
			st.Invalid = append(st.Invalid, e.ID)
			continue
		}
		line, ok := occurrence(doc, e, origin, p)
		if !ok {
			continue
		}
		line.DaysUntilDue = daysBetween(today, line.DueDate.Time)
		line.Risk = classify(line.Paid, line.DaysUntilDue)

		st.Lines = append(st.Lines, line)
		st.Total = st.Total.Add(line.Amount)
		if line.Paid {
			st.TotalPaid = st.TotalPaid.Add(line.Amount)
		}
	}
	st.TotalDue = st.Total.Sub(st.TotalPaid)
	slices.SortStableFunc(st.Lines, func(a, b Line) int {
		return a.DueDate.Compare(b.DueDate.Time)
	})
	return st
}

// Applies reports whether e produces a line in p.
func Applies(doc *core.Document, e core.Expense, p core.Period) bool {
	origin, err := e.Origin()
	if err != nil {
		return false
	}
	_, ok := occurrence(doc, e, origin, p)
	return ok
}

// FirstPeriod returns the period of the first installment: the origin month,
// moved one month forward when the purchase falls on or after the bound
// card's closing day. Without a resolvable card there is no shift.
func FirstPeriod(doc *core.Document, e core.Expense, origin core.Date) core.Period {
	first := origin.Period()
	if card, ok := boundCard(doc, e); ok && origin.Day() >= card.ClosingDay {
		first = first.AddMonths(1)
	}
	return first
}

func occurrence(doc *core.Document, e core.Expense, origin core.Date, p core.Period) (Line, bool) {
	card, hasCard := boundCard(doc, e)
	line := Line{
		ExpenseID:   e.ID,
		Description: e.Description,
		Type:        e.Type,
		CardID:      e.CardID,
		Category:    e.Category,
		Beneficiary: e.Beneficiary,
		Period:      p,
		Paid:        e.PaidPeriods.Has(p),
	}
	if hasCard {
		line.CardName = card.Name
		line.DueDate = core.Date{Time: p.Day(card.DueDay)}
	} else {
		line.DueDate = core.Date{Time: p.Day(origin.Day())}
	}

	if e.Type == core.TypeRecurring {
		if p.Before(origin.Period()) {
			return Line{}, false
		}
		if e.Termination != nil && p.After(*e.Termination) {
			return Line{}, false
		}
		if e.Paused.Has(p) {
			return Line{}, false
		}
		line.Note = NoteRecurring
		if v, ok := e.Override(p); ok {
			line.Amount = v
		} else {
			line.Amount = e.Value
			line.Estimate = e.Variable
		}
		return line, true
	}

	n := e.InstallmentCount()
	index := p.MonthsSince(FirstPeriod(doc, e, origin))
	if index < 0 || index >= n {
		return Line{}, false
	}
	line.Amount = e.Value.Div(decimal.NewFromInt(int64(n)))
	if n > 1 {
		line.Note = fmt.Sprintf("%d/%d", index+1, n)
	} else {
		line.Note = NoteSingle
	}
	return line, true
}

func boundCard(doc *core.Document, e core.Expense) (*core.Card, bool) {
	if e.CardID == "" {
		return nil, false
	}
	return doc.Card(e.CardID)
}

func classify(paid bool, days int) Risk {
	switch {
	case paid:
		return RiskSettled
	case days <= 2:
		return RiskCritical
	case days <= 5:
		return RiskWarning
	}
	return RiskSafe
}

// daysBetween counts calendar days from today to due, ignoring time of day.
func daysBetween(today, due time.Time) int {
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

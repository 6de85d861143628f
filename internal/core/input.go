package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ExpenseInput is the untrusted shape of a new expense, shared by manual
// entry and imported statement drafts.
type ExpenseInput struct {
	Description  string      `json:"description"`
	Value        string      `json:"value"`
	Type         ExpenseType `json:"type"`
	Category     string      `json:"category"`
	Beneficiary  string      `json:"beneficiary"`
	Date         string      `json:"date"`
	Installments int         `json:"installments"`
	CardID       string      `json:"cardId"`
	Variable     bool        `json:"isVariableAmount"`
}

// CardInput is the untrusted shape of a card create/update.
type CardInput struct {
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	LastDigits string `json:"lastDigits"`
	Limit      string `json:"limit"`
	ClosingDay int    `json:"closingDay"`
	DueDay     int    `json:"dueDay"`
	Expiration string `json:"expiration"`
}

// NewExpense validates in and builds a fresh expense with empty period
// state. It is the only way expenses enter a document.
func NewExpense(in ExpenseInput) (Expense, error) {
	if !in.Type.Valid() {
		return Expense{}, ErrInvalidType
	}
	cardID := strings.TrimSpace(in.CardID)
	if in.Type.RequiresCard() && cardID == "" {
		return Expense{}, ErrCardRequired
	}
	value, err := ParseAmount(in.Value)
	if err != nil {
		return Expense{}, err
	}
	origin, err := ParseDate(in.Date)
	if err != nil {
		return Expense{}, err
	}

	installments := 1
	if in.Type.IsInstallment() {
		installments = in.Installments
		if installments < 1 || installments > MaxInstallments {
			return Expense{}, ErrInvalidInstalment
		}
	}

	e := Expense{
		ID:           NewID(),
		Description:  strings.TrimSpace(in.Description),
		Value:        value,
		Type:         in.Type,
		Category:     strings.TrimSpace(in.Category),
		Beneficiary:  strings.TrimSpace(in.Beneficiary),
		OriginDate:   origin.String(),
		Installments: installments,
		CardID:       cardID,
		PaidPeriods:  PeriodSet{},
		Paused:       PeriodSet{},
		Variations:   map[string]decimal.Decimal{},
	}
	if in.Type == TypeRecurring {
		e.Variable = in.Variable
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// NewCard validates in and builds an active card.
func NewCard(in CardInput) (Card, error) {
	c := Card{ID: NewID(), Status: CardActive}
	if err := in.apply(&c); err != nil {
		return Card{}, err
	}
	return c, nil
}

// ApplyTo overwrites the editable fields of c, leaving id and status alone.
// c is only modified when in is valid.
func (in CardInput) ApplyTo(c *Card) error {
	next := *c
	if err := in.apply(&next); err != nil {
		return err
	}
	*c = next
	return nil
}

func (in CardInput) apply(c *Card) error {
	limit := decimal.Zero
	if strings.TrimSpace(in.Limit) != "" {
		l, err := ParseSignedAmount(in.Limit)
		if err != nil {
			return err
		}
		limit = l
	}
	var exp *Period
	if strings.TrimSpace(in.Expiration) != "" {
		p, err := ParsePeriod(in.Expiration)
		if err != nil {
			return err
		}
		exp = &p
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Brand = strings.TrimSpace(in.Brand)
	c.LastDigits = strings.TrimSpace(in.LastDigits)
	c.Limit = limit
	c.ClosingDay = in.ClosingDay
	c.DueDay = in.DueDay
	c.Expiration = exp
	return c.Validate()
}

package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeCash               ExpenseType = "cash"
	TypeCard               ExpenseType = "card"
	TypeCardInstallment    ExpenseType = "card_installment"
	TypeInvoiceInstallment ExpenseType = "invoice_installment"
	TypeRecurring          ExpenseType = "recurring"
)

const (
	CardActive    CardStatus = "active"
	CardSleeping  CardStatus = "sleeping"
	CardCancelled CardStatus = "cancelled"
)

// CurrentSchemaVersion is the document layout written by this build.
const CurrentSchemaVersion = 2

// MaxInstallments bounds installment counts to 35 years of monthly payments.
const MaxInstallments = 420

type (
	ExpenseType string
	CardStatus  string

	Date struct {
		time.Time
	}

	// Card defines a monthly billing cycle and a credit limit.
	Card struct {
		ID         string          `json:"id"`
		Name       string          `json:"name"`
		Brand      string          `json:"brand,omitempty"`
		LastDigits string          `json:"lastDigits,omitempty"`
		Limit      decimal.Decimal `json:"limit"`
		ClosingDay int             `json:"closingDay"`
		DueDay     int             `json:"dueDay"`
		Status     CardStatus      `json:"status"`
		Expiration *Period         `json:"expiration,omitempty"`
	}

	// Expense is a single obligation. Value is the total for installment
	// types and the per-period nominal amount for recurring ones.
	Expense struct {
		ID           string                     `json:"id"`
		Description  string                     `json:"description"`
		Value        decimal.Decimal            `json:"value"`
		Type         ExpenseType                `json:"type"`
		Category     string                     `json:"category,omitempty"`
		Beneficiary  string                     `json:"beneficiary,omitempty"`
		OriginDate   string                     `json:"originDate"`
		Installments int                        `json:"installmentCount"`
		CardID       string                     `json:"cardId,omitempty"`
		PaidPeriods  PeriodSet                  `json:"paidPeriods"`
		Paused       PeriodSet                  `json:"pausedPeriods"`
		Termination  *Period                    `json:"terminationPeriod"`
		Variable     bool                       `json:"isVariableAmount"`
		Variations   map[string]decimal.Decimal `json:"variationOverrides"`
	}

	// Document is the whole persisted snapshot.
	Document struct {
		SchemaVersion int       `json:"schemaVersion"`
		Cards         []Card    `json:"cards"`
		Expenses      []Expense `json:"expenses"`
		Categories    []string  `json:"categories"`
		Beneficiaries []string  `json:"beneficiaries"`
	}
)

var (
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidType       = errors.New("invalid expense type")
	ErrInvalidStatus     = errors.New("invalid card status")
	ErrCardRequired      = errors.New("card required for card-bound expense")
	ErrInvalidInstalment = errors.New("invalid installment count")
	ErrNotFound          = errors.New("not found")
	ErrNotRecurring      = errors.New("expense is not recurring")
)

// NewID returns a fresh identifier for cards and expenses.
func NewID() string {
	return uuid.NewString()
}

// Valid reports whether t is a known expense type.
func (t ExpenseType) Valid() bool {
	switch t {
	case TypeCash, TypeCard, TypeCardInstallment, TypeInvoiceInstallment, TypeRecurring:
		return true
	}
	return false
}

// IsInstallment reports whether t spreads a total over a fixed count.
func (t ExpenseType) IsInstallment() bool {
	return t == TypeCardInstallment || t == TypeInvoiceInstallment
}

// RequiresCard reports whether t can only exist bound to a card.
func (t ExpenseType) RequiresCard() bool {
	return t == TypeCard || t == TypeCardInstallment
}

func (s CardStatus) Valid() bool {
	switch s {
	case CardActive, CardSleeping, CardCancelled:
		return true
	}
	return false
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Period returns the month d falls in.
func (d Date) Period() Period {
	return PeriodOf(d.Time)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Limit.IsNegative() {
		return ErrInvalidAmount
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 || c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDay
	}
	if !c.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Expired reports whether the card's expiration month lies before now.
func (c Card) Expired(now time.Time) bool {
	if c.Expiration == nil {
		return false
	}
	return c.Expiration.Before(PeriodOf(now))
}

// Usable reports whether the card can take new purchases.
func (c Card) Usable(now time.Time) bool {
	return c.Status == CardActive && !c.Expired(now)
}

// Origin parses the origin date.
func (e Expense) Origin() (Date, error) {
	return ParseDate(e.OriginDate)
}

// InstallmentCount returns the number of monthly occurrences, never below 1.
func (e Expense) InstallmentCount() int {
	if e.Installments < 1 {
		return 1
	}
	return e.Installments
}

// PaidCount is the number of settled periods.
func (e Expense) PaidCount() int {
	return e.PaidPeriods.Len()
}

// Override returns the actual amount recorded for p, if any.
func (e Expense) Override(p Period) (decimal.Decimal, bool) {
	v, ok := e.Variations[p.String()]
	return v, ok
}

func (e Expense) Validate() error {
	if _, err := e.Origin(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Value.IsPositive() {
		return ErrInvalidAmount
	}
	if !e.Type.Valid() {
		return ErrInvalidType
	}
	if e.Type.RequiresCard() && e.CardID == "" {
		return ErrCardRequired
	}
	if e.Installments < 1 || e.Installments > MaxInstallments {
		return ErrInvalidInstalment
	}
	if !e.Type.IsInstallment() && e.Installments != 1 {
		return ErrInvalidInstalment
	}
	return nil
}

// Card returns a pointer to the card with the given id.
func (d *Document) Card(id string) (*Card, bool) {
	for i := range d.Cards {
		if d.Cards[i].ID == id {
			return &d.Cards[i], true
		}
	}
	return nil, false
}

// Expense returns a pointer to the expense with the given id.
func (d *Document) Expense(id string) (*Expense, bool) {
	for i := range d.Expenses {
		if d.Expenses[i].ID == id {
			return &d.Expenses[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (d Document) Clone() Document {
	out := Document{
		SchemaVersion: d.SchemaVersion,
		Cards:         make([]Card, len(d.Cards)),
		Expenses:      make([]Expense, len(d.Expenses)),
		Categories:    append([]string(nil), d.Categories...),
		Beneficiaries: append([]string(nil), d.Beneficiaries...),
	}
	for i, c := range d.Cards {
		if c.Expiration != nil {
			exp := *c.Expiration
			c.Expiration = &exp
		}
		out.Cards[i] = c
	}
	for i, e := range d.Expenses {
		e.PaidPeriods = append(PeriodSet{}, e.PaidPeriods...)
		e.Paused = append(PeriodSet{}, e.Paused...)
		if e.Termination != nil {
			t := *e.Termination
			e.Termination = &t
		}
		vars := make(map[string]decimal.Decimal, len(e.Variations))
		for k, v := range e.Variations {
			vars[k] = v
		}
		e.Variations = vars
		out.Expenses[i] = e
	}
	return out
}

package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Period() != NewPeriod(2024, time.February) {
		t.Fatalf("unexpected period %v", d.Period())
	}
	for _, in := range []string{"", "2024-13-01", "29/02/2024", "abc"} {
		if _, err := ParseDate(in); err == nil {
			t.Fatalf("%q expected error", in)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		OriginDate:   "2025-01-01",
		Description:  "ok",
		Value:        decimal.NewFromInt(100),
		Type:         TypeCardInstallment,
		Installments: 3,
		CardID:       "c1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{OriginDate: "nope", Description: "a", Value: decimal.NewFromInt(1), Type: TypeCash, Installments: 1},
		{OriginDate: "2025-01-01", Description: "", Value: decimal.NewFromInt(1), Type: TypeCash, Installments: 1},
		{OriginDate: "2025-01-01", Description: "a", Value: decimal.Zero, Type: TypeCash, Installments: 1},
		{OriginDate: "2025-01-01", Description: "a", Value: decimal.NewFromInt(1), Type: "other", Installments: 1},
		{OriginDate: "2025-01-01", Description: "a", Value: decimal.NewFromInt(1), Type: TypeCard, Installments: 1},
		{OriginDate: "2025-01-01", Description: "a", Value: decimal.NewFromInt(1), Type: TypeCash, Installments: 2},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCardExpired(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	may := NewPeriod(2025, time.May)
	june := NewPeriod(2025, time.June)

	if (Card{}).Expired(now) {
		t.Fatalf("card without expiration must not expire")
	}
	if !(Card{Expiration: &may}).Expired(now) {
		t.Fatalf("card expiring in May should be expired in June")
	}
	if (Card{Expiration: &june}).Expired(now) {
		t.Fatalf("card is valid through its expiration month")
	}
	if (Card{Status: CardSleeping}).Usable(now) {
		t.Fatalf("sleeping card must not be usable")
	}
}

func TestDocumentCloneIsDeep(t *testing.T) {
	term := NewPeriod(2025, time.March)
	doc := Document{
		Expenses: []Expense{{
			ID:          "e1",
			PaidPeriods: PeriodSet{"2025-01"},
			Termination: &term,
			Variations:  map[string]decimal.Decimal{"2025-01": decimal.NewFromInt(5)},
		}},
	}
	clone := doc.Clone()
	clone.Expenses[0].PaidPeriods[0] = "2030-01"
	clone.Expenses[0].Termination.Year = 2030
	clone.Expenses[0].Variations["2025-01"] = decimal.NewFromInt(9)

	if doc.Expenses[0].PaidPeriods[0] != "2025-01" {
		t.Fatalf("paid periods shared with clone")
	}
	if doc.Expenses[0].Termination.Year != 2025 {
		t.Fatalf("termination shared with clone")
	}
	if !doc.Expenses[0].Variations["2025-01"].Equal(decimal.NewFromInt(5)) {
		t.Fatalf("variations shared with clone")
	}
}

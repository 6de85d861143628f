package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewExpense(t *testing.T) {
	tests := []struct {
		name    string
		in      ExpenseInput
		wantErr error
	}{
		{
			name: "card installment",
			in:   ExpenseInput{Description: "TV", Value: "1.200,00", Type: TypeCardInstallment, Date: "2025-03-07", Installments: 10, CardID: "c1"},
		},
		{
			name:    "card purchase without card",
			in:      ExpenseInput{Description: "Book", Value: "50", Type: TypeCard, Date: "2025-03-07"},
			wantErr: ErrCardRequired,
		},
		{
			name:    "card installment without card",
			in:      ExpenseInput{Description: "Sofa", Value: "900", Type: TypeCardInstallment, Date: "2025-03-07", Installments: 3},
			wantErr: ErrCardRequired,
		},
		{
			name: "invoice installment without card",
			in:   ExpenseInput{Description: "Course", Value: "600", Type: TypeInvoiceInstallment, Date: "2025-03-10", Installments: 6},
		},
		{
			name:    "zero installments",
			in:      ExpenseInput{Description: "Course", Value: "600", Type: TypeInvoiceInstallment, Date: "2025-03-10"},
			wantErr: ErrInvalidInstalment,
		},
		{
			name:    "bad value",
			in:      ExpenseInput{Description: "Lunch", Value: "abc", Type: TypeCash, Date: "2025-03-10"},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "bad date",
			in:      ExpenseInput{Description: "Lunch", Value: "10", Type: TypeCash, Date: "10/03/2025"},
			wantErr: ErrInvalidDate,
		},
		{
			name:    "unknown type",
			in:      ExpenseInput{Description: "Lunch", Value: "10", Type: "gift", Date: "2025-03-10"},
			wantErr: ErrInvalidType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExpense(tt.in)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewExpenseNormalizesNonInstallmentFields(t *testing.T) {
	e, err := NewExpense(ExpenseInput{
		Description:  " Lunch ",
		Value:        "10,50",
		Type:         TypeCash,
		Date:         "2025-03-10",
		Installments: 12,
		Variable:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Installments != 1 || e.Variable {
		t.Fatalf("one-time expense kept installment/variable data: %+v", e)
	}
	if e.Description != "Lunch" || !e.Value.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("unexpected normalization: %+v", e)
	}
	if e.ID == "" || e.PaidPeriods == nil || e.Variations == nil {
		t.Fatalf("expected initialized id and period state: %+v", e)
	}
}

func TestCardInputApplyToKeepsCardOnError(t *testing.T) {
	c, err := NewCard(CardInput{Name: "Visa", Limit: "5000", ClosingDay: 5, DueDay: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (CardInput{Name: "", ClosingDay: 5, DueDay: 10}).ApplyTo(&c); err == nil {
		t.Fatalf("expected validation error")
	}
	if c.Name != "Visa" {
		t.Fatalf("card mutated on failed update: %+v", c)
	}
	if err := (CardInput{Name: "Visa Gold", Limit: "8000", ClosingDay: 6, DueDay: 12, Expiration: "2030-12"}).ApplyTo(&c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != CardActive || c.Expiration == nil || c.Expiration.String() != "2030-12" {
		t.Fatalf("unexpected card after update: %+v", c)
	}
}

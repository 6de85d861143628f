package ledger

import (
	"time"

	"cardledger/internal/core"

	"github.com/shopspring/decimal"
)

func testCard(id string, closing, due int, limit int64) core.Card {
	return core.Card{
		ID:         id,
		Name:       "Card " + id,
		Limit:      decimal.NewFromInt(limit),
		ClosingDay: closing,
		DueDay:     due,
		Status:     core.CardActive,
	}
}

func testExpense(id string, typ core.ExpenseType, value int64, origin string, n int, cardID string) core.Expense {
	return core.Expense{
		ID:           id,
		Description:  "expense " + id,
		Value:        decimal.NewFromInt(value),
		Type:         typ,
		OriginDate:   origin,
		Installments: n,
		CardID:       cardID,
		PaidPeriods:  core.PeriodSet{},
		Paused:       core.PeriodSet{},
		Variations:   map[string]decimal.Decimal{},
	}
}

func period(y int, m time.Month) core.Period { return core.NewPeriod(y, m) }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 30, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

package ledger

import (
	"testing"
	"time"

	"cardledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendCard(t *testing.T) {
	expired := testCard("expired", 1, 28, 1000)
	past := period(2025, time.January)
	expired.Expiration = &past
	sleeping := testCard("sleeping", 1, 28, 1000)
	sleeping.Status = core.CardSleeping

	doc := &core.Document{Cards: []core.Card{
		testCard("early", 20, 5, 1000),
		testCard("closed", 10, 15, 1000),
		expired,
		sleeping,
	}}
	today := day(2025, time.March, 12)

	rec, ok := RecommendCard(doc, today)
	require.True(t, ok)
	assert.Equal(t, "closed", rec.Card.ID, "purchase after closing rolls to next month's due date")
	assert.Equal(t, "2025-04-15", rec.DueDate.String())
	assert.Equal(t, 34, rec.Days)

	_, ok = RecommendCard(&core.Document{Cards: []core.Card{expired, sleeping}}, today)
	assert.False(t, ok)
}

func TestEngineUsesClock(t *testing.T) {
	doc := &core.Document{Expenses: []core.Expense{testExpense("e", core.TypeCash, 10, "2025-03-04", 1, "")}}
	g := NewEngine(func() time.Time { return day(2025, time.March, 1) })

	st := g.Statement(doc, 2025, time.March, FilterAll)
	require.Len(t, st.Lines, 1)
	assert.Equal(t, 3, st.Lines[0].DaysUntilDue)
	assert.Equal(t, RiskWarning, st.Lines[0].Risk)
}

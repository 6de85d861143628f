package ledger

import (
	"time"

	"cardledger/internal/core"
)

// Recommendation is the card that defers payment of a purchase made today
// the longest.
type Recommendation struct {
	Card    core.Card `json:"card"`
	DueDate core.Date `json:"dueDate"`
	Days    int       `json:"days"`
}

// RecommendCard picks, among active unexpired cards, the one whose bill for
// a purchase made today is due furthest away. Ties keep document order.
func RecommendCard(doc *core.Document, today time.Time) (Recommendation, bool) {
	var (
		best  Recommendation
		found bool
	)
	now := core.PeriodOf(today)
	for _, c := range doc.Cards {
		if !c.Usable(today) {
			continue
		}
		due := now
		if today.Day() >= c.ClosingDay {
			due = due.AddMonths(1)
		}
		date := due.Day(c.DueDay)
		days := daysBetween(today, date)
		if !found || days > best.Days {
			best = Recommendation{Card: c, DueDate: core.Date{Time: date}, Days: days}
			found = true
		}
	}
	return best, found
}

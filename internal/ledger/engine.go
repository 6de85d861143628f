package ledger

import (
	"time"

	"cardledger/internal/core"
)

// Engine binds the projection functions to a clock.
type Engine struct {
	now func() time.Time
}

func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

func (g *Engine) Today() time.Time {
	return g.now()
}

func (g *Engine) Statement(doc *core.Document, year int, month time.Month, filter Filter) Statement {
	return Project(doc, core.NewPeriod(year, month), filter, g.now())
}

func (g *Engine) Limit(doc *core.Document, cardID string) LimitStatus {
	return CardLimit(doc, cardID)
}

func (g *Engine) Recommend(doc *core.Document) (Recommendation, bool) {
	return RecommendCard(doc, g.now())
}

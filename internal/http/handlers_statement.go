package http

import (
	"net/http"

	"cardledger/internal/ledger"
	applog "cardledger/internal/log"
)

// handleStatement serves one month's projection. Revision is read before
// the projection so a concurrent write can only store newer data under an
// older key, which no later request asks for.
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.opts.Now())
	if err != nil {
		writeError(w, r, "statement", err)
		return
	}
	rev := s.ledger.Revision()
	st, hit := s.statements.GetOrBuild(rev, params.Period(), params.Filter, s.opts.Now(), func() ledger.Statement {
		return s.ledger.Statement(params.Year, params.Month, params.Filter)
	})
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Statement served",
		applog.NewFields().
			WithStatement(params.Period().String(), string(params.Filter)).
			WithRevision(rev).
			ToSlice()...)

	cacheState := "miss"
	if hit {
		cacheState = "hit"
	}
	NewJSONResponse().Header("X-Cache", cacheState).Data(st).Write(w)
}

func (s *Server) handlePayStatement(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.opts.Now())
	if err != nil {
		writeError(w, r, "pay_statement", err)
		return
	}
	n, err := s.ledger.PayStatement(r.Context(), params.Year, params.Month, params.Filter)
	if err != nil {
		writeError(w, r, "pay_statement", err)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"period": params.Period(),
		"filter": params.Filter,
		"marked": n,
	}).Write(w)
}

func (s *Server) handleExportStatement(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.opts.Now())
	if err != nil {
		writeError(w, r, "export_statement", err)
		return
	}
	ref, err := s.ledger.ExportStatement(r.Context(), params.Year, params.Month, params.Filter)
	if err != nil {
		writeError(w, r, "export_statement", err)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"period": params.Period(),
		"filter": params.Filter,
		"ref":    ref,
	}).Write(w)
}

func (s *Server) handleDebts(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.ledger.Debts()).Write(w)
}

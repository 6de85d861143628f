package http

import (
	"context"
	"net/http"

	"cardledger/internal/core"
	"cardledger/internal/services"
)

type valueRequest struct {
	Period string `json:"period"`
	Value  string `json:"value"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.ledger.Snapshot().Expenses).Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in.Description = sanitizeInput(in.Description)
	in.Category = sanitizeInput(in.Category)
	in.Beneficiary = sanitizeInput(in.Beneficiary)

	e, err := s.ledger.AddExpense(r.Context(), in)
	if err != nil {
		writeError(w, r, "add_expense", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(e).Write(w)
}

func (s *Server) handleProjectedEnd(w http.ResponseWriter, r *http.Request) {
	end, err := s.ledger.ProjectedEnd(r.PathValue("id"))
	if err != nil {
		writeError(w, r, "projected_end", err)
		return
	}
	NewJSONResponse().Data(end).Write(w)
}

func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, err := req.parse()
	if err != nil {
		writeError(w, r, "toggle_paid", err)
		return
	}
	paid, err := s.ledger.TogglePaid(r.Context(), r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, "toggle_paid", err)
		return
	}
	NewJSONResponse().Data(map[string]any{"id": r.PathValue("id"), "period": p, "paid": paid}).Write(w)
}

func (s *Server) handleConfirmValue(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, err := core.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, r, "confirm_value", err)
		return
	}
	e, err := s.ledger.ConfirmValue(r.Context(), r.PathValue("id"), p, req.Value)
	if err != nil {
		writeError(w, r, "confirm_value", err)
		return
	}
	NewJSONResponse().Data(e).Write(w)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.recurringChange(w, r, "pause_recurring", s.ledger.PauseRecurring)
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	s.recurringChange(w, r, "terminate_recurring", s.ledger.TerminateRecurring)
}

func (s *Server) recurringChange(w http.ResponseWriter, r *http.Request, op string, apply func(ctx context.Context, id string, p core.Period) error) {
	var req periodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, err := req.parse()
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	if err := apply(r.Context(), r.PathValue("id"), p); err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req services.ImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	res, err := s.ledger.ImportDrafts(r.Context(), req)
	if err != nil {
		writeError(w, r, "import", err)
		return
	}
	NewJSONResponse().Data(res).Write(w)
}

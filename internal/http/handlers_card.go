package http

import (
	"net/http"

	"cardledger/internal/core"
)

type cancelRequest struct {
	Accelerate bool `json:"accelerate"`
}

type migrateRequest struct {
	Target  string `json:"target"`
	Archive bool   `json:"archive"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.ledger.Snapshot().Cards).Write(w)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var in core.CardInput
	if err := decodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Brand = sanitizeInput(in.Brand)
	c, err := s.ledger.CreateCard(r.Context(), in)
	if err != nil {
		writeError(w, r, "create_card", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(c).Write(w)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var in core.CardInput
	if err := decodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in.Name = sanitizeInput(in.Name)
	in.Brand = sanitizeInput(in.Brand)
	c, err := s.ledger.UpdateCard(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, "update_card", err)
		return
	}
	NewJSONResponse().Data(c).Write(w)
}

func (s *Server) handleToggleCard(w http.ResponseWriter, r *http.Request) {
	status, err := s.ledger.ToggleCardStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "toggle_card", err)
		return
	}
	NewJSONResponse().Data(map[string]any{"id": r.PathValue("id"), "status": status}).Write(w)
}

func (s *Server) handleCancelCard(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	acc, err := s.ledger.CancelCard(r.Context(), r.PathValue("id"), req.Accelerate)
	if err != nil {
		writeError(w, r, "cancel_card", err)
		return
	}
	NewJSONResponse().Data(acc).Write(w)
}

func (s *Server) handleMigrateDebt(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	moved, err := s.ledger.MigrateDebt(r.Context(), r.PathValue("id"), req.Target, req.Archive)
	if err != nil {
		writeError(w, r, "migrate_debt", err)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"source": r.PathValue("id"),
		"target": req.Target,
		"moved":  moved,
	}).Write(w)
}

// handleCardLimit reports limit usage. Unknown cards degrade to a zero
// status like every read.
func (s *Server) handleCardLimit(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.ledger.CardLimit(r.PathValue("id"))).Write(w)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.ledger.RecommendCard()
	if !ok {
		NotFoundError("no active card").Write(w)
		return
	}
	NewJSONResponse().Data(rec).Write(w)
}

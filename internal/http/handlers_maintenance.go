package http

import (
	"fmt"
	"io"
	"net/http"
)

type purgeRequest struct {
	Year int `json:"year"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.Status(r.Context())
	if err != nil {
		writeError(w, r, "status", err)
		return
	}
	NewJSONResponse().Data(st).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, bens := s.ledger.Categories()
	NewJSONResponse().Data(map[string]any{
		"categories":    cats,
		"beneficiaries": bens,
	}).Write(w)
}

func (s *Server) handleSyncCategories(w http.ResponseWriter, r *http.Request) {
	added, err := s.ledger.SyncCategories(r.Context())
	if err != nil {
		writeError(w, r, "sync_categories", err)
		return
	}
	NewJSONResponse().Data(map[string]any{"added": added}).Write(w)
}

// handleDownloadBackup streams the full archive as an attachment.
func (s *Server) handleDownloadBackup(w http.ResponseWriter, r *http.Request) {
	body, err := s.ledger.ExportBackup(r.Context())
	if err != nil {
		writeError(w, r, "export_backup", err)
		return
	}
	name := fmt.Sprintf("cardledger-backup-%s.json", s.opts.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleWriteBackup writes an archive file on the server side.
func (s *Server) handleWriteBackup(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.ledger.Backup(r.Context())
	if err != nil {
		writeError(w, r, "backup", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(receipt).Write(w)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxRestoreLen))
	if err != nil {
		ErrorResponse(http.StatusRequestEntityTooLarge, "too_large", err.Error()).Write(w)
		return
	}
	doc, err := s.ledger.Restore(r.Context(), body)
	if err != nil {
		writeError(w, r, "restore", err)
		return
	}
	NewJSONResponse().Data(map[string]any{
		"cards":    len(doc.Cards),
		"expenses": len(doc.Expenses),
		"revision": s.ledger.Revision(),
	}).Write(w)
}

// handlePurge removes settled history before the given year, defaulting to
// the current one.
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if req.Year == 0 {
		req.Year = s.opts.Now().Year()
	}
	res, err := s.ledger.Purge(r.Context(), req.Year)
	if err != nil {
		writeError(w, r, "purge", err)
		return
	}
	NewJSONResponse().Data(res).Write(w)
}

func (s *Server) handleDismissRollover(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DismissRollover(r.Context()); err != nil {
		writeError(w, r, "dismiss_rollover", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

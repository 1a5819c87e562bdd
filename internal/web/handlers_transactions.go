package web

import (
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/ledger/internal/core"
)

// handleAddTransaction creates one record from a JSON object.
func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	t, err := s.service.AddTransaction(r.Context(), raw)
	if err != nil {
		s.respondError(w, r, err, "add transaction")
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "Transaction added successfully", Data: t})
}

// handleEditTransaction replaces every field of record {id}.
func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}
	raw, ok := decodeRecord(w, r)
	if !ok {
		return
	}

	t, err := s.service.EditTransaction(r.Context(), id, raw)
	if err != nil {
		s.respondError(w, r, err, "update transaction")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Transaction updated successfully", Data: t})
}

// handleDeleteTransaction soft-deletes record {id}.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}

	t, err := s.service.DeleteTransaction(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, "delete transaction")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Transaction deleted successfully", Data: t})
}

// handleDeleteTransactions soft-deletes every id in {"ids": [...]}.
// IDs may be JSON numbers or numeric strings.
func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []json.Number `json:"ids"`
	}
	if err := decodeJSON(w, r, &body); err != nil || body.IDs == nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidIDs)
		return
	}

	ids := make([]int64, len(body.IDs))
	for i, n := range body.IDs {
		id, err := n.Int64()
		if err != nil {
			writeError(w, r, http.StatusBadRequest, msgInvalidIDs)
			return
		}
		ids[i] = id
	}

	n, err := s.service.DeleteTransactions(r.Context(), ids)
	if err != nil {
		s.respondError(w, r, err, "delete transactions")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		Deleted int64  `json:"deleted"`
	}{"Transactions deleted successfully", n})
}

// handleListTransactions returns one page of live records.
// Query: page (default 1), limit (default from config).
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	page, okPage := queryInt(r, "page", 1)
	limit, okLimit := queryInt(r, "limit", s.service.DefaultPageSize())
	if !okPage || !okLimit {
		writeError(w, r, http.StatusBadRequest, msgInvalidQuery)
		return
	}

	result, err := s.service.ListTransactions(r.Context(), page, limit)
	if err != nil {
		s.respondError(w, r, err, "fetch transactions")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetTransaction returns record {id}, deleted or not.
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}

	t, err := s.service.GetTransaction(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, "fetch transaction")
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{Data: t})
}

// decodeRecord reads a JSON object body as a raw record. On failure it has
// already written the 400 response.
func decodeRecord(w http.ResponseWriter, r *http.Request) (core.RawRecord, bool) {
	var obj map[string]any
	if err := decodeJSON(w, r, &obj); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidBody)
		return nil, false
	}
	return core.CoerceRecord(obj), true
}

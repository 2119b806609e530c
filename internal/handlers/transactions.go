package handlers

import (
	"net/http"
)

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	rows, err := h.family.Transactions(r.Context(), p.Role, p.UserID, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(rows, transactionView))
}

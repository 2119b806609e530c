package handlers

import (
	"net/http"

	"familybank/internal/money"
)

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	view, err := h.family.Profile(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	payload := memberView(view.Member)
	payload["balance"] = money.FormatMinor(view.Balance)
	payload["currency"] = money.Currency
	respondJSON(w, http.StatusOK, payload)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	account, err := h.family.Balance(r.Context(), p.Role, p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_id": account.ID,
		"balance":    money.FormatMinor(account.Balance),
		"currency":   money.Currency,
	})
}

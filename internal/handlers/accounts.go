package handlers

import (
	"net/http"

	"familybank/internal/auth"
	"familybank/internal/middleware"
	"familybank/internal/money"
	"familybank/internal/store"
	"familybank/internal/websocket"
)

// SelfCheck compares each visible account's balance with its ledger entries.
func (h *Handler) SelfCheck(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	rows, err := h.family.SelfCheck(r.Context(), p.Role, p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	consistent := true
	for _, row := range rows {
		if row.Difference != 0 {
			consistent = false
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"consistent": consistent,
		"accounts": mapSlice(rows, func(row store.AccountBalanceSummary) map[string]any {
			return map[string]any{
				"account_id":     row.ID,
				"owner_kind":     row.OwnerKind,
				"owner_id":       row.OwnerID,
				"balance":        money.FormatMinor(row.StoredBalance),
				"ledger_balance": money.FormatMinor(row.CalculatedBalance),
				"difference":     money.FormatMinor(row.Difference),
			}
		}),
	})
}

// WSBalances upgrades to a websocket that receives the caller's balance
// changes. Browsers cannot set headers on the upgrade, so the token may come
// in the query string.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r)
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}

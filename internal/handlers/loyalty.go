package handlers

import (
	"net/http"

	"familybank/internal/models"
	"familybank/internal/money"
)

func (h *Handler) LoyaltyHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	rows, err := h.loyalty.History(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(rows, func(row models.LoyaltyTransaction) map[string]any {
		return map[string]any{
			"id":          row.ID,
			"amount":      row.Amount,
			"type":        row.Type,
			"description": row.Description,
			"created_at":  row.CreatedAt,
		}
	}))
}

type convertRequest struct {
	Points int `json:"points" validate:"required,gt=0"`
}

func (h *Handler) ConvertPoints(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req convertRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.loyalty.Convert(r.Context(), p.UserID, req.Points)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"points_converted": result.PointsConverted,
		"money_received":   money.FormatMinor(result.MoneyReceived),
		"remaining_points": result.RemainingPoints,
		"new_balance":      money.FormatMinor(result.NewBalance),
		"currency":         money.Currency,
	})
}

func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.loyalty.Rewards(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(rewards, rewardView))
}

func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	rewardID, err := pathID(r, "rewardID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.loyalty.Redeem(r.Context(), p.UserID, rewardID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"reward":           rewardView(result.Reward),
		"points_spent":     result.PointsSpent,
		"remaining_points": result.RemainingPoints,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"familybank/internal/models"
	"familybank/internal/money"
	"familybank/internal/services"
)

func (h *Handler) ListChildTasks(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	tasks, err := h.tasks.ListForChild(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(tasks, taskView))
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	task, err := h.tasks.Complete(r.Context(), taskID, p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, taskView(task))
}

func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	goals, err := h.goals.ListGoals(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(goals, func(g models.GoalWithBalance) map[string]any {
		return goalView(g.SavingsGoal, g.Balance)
	}))
}

type createGoalRequest struct {
	Name         string      `json:"name" validate:"required,max=200"`
	TargetAmount json.Number `json:"target_amount" validate:"required,amount"`
}

func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createGoalRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	target, err := parseAmount("target_amount", req.TargetAmount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	picture, err := h.savePicture(r, "goals")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	goal, err := h.goals.CreateGoal(r.Context(), services.CreateGoalRequest{
		ChildID:      p.UserID,
		Name:         req.Name,
		TargetAmount: target,
		Picture:      picture,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, goalView(goal.SavingsGoal, goal.Balance))
}

type goalDepositRequest struct {
	Amount json.Number `json:"amount" validate:"required,amount"`
}

func (h *Handler) DepositToGoal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	goalID, err := pathID(r, "goalID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req goalDepositRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.goals.Deposit(r.Context(), goalID, p.UserID, amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	payload := map[string]any{
		"goal":           goalView(result.Goal, result.Balance),
		"requested":      money.FormatMinor(result.Requested),
		"deposited":      money.FormatMinor(result.Deposited),
		"capped":         result.Capped,
		"completed":      result.Completed,
		"points_awarded": result.PointsAwarded,
		"child_balance":  money.FormatMinor(result.ChildBalance),
	}
	if msg := result.Message(); msg != "" {
		payload["message"] = msg
	}
	respondJSON(w, http.StatusOK, payload)
}

func (h *Handler) BreakGoal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	goalID, err := pathID(r, "goalID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.goals.BreakGoal(r.Context(), goalID, p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"goal":          goalView(result.Goal, 0),
		"returned":      money.FormatMinor(result.Returned),
		"child_balance": money.FormatMinor(result.ChildBalance),
		"message":       result.Message(),
	})
}

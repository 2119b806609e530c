package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"familybank/internal/money"
	"familybank/internal/services"
	"familybank/internal/validator"
)

func (h *Handler) CreateChild(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	picture, err := h.savePicture(r, "profiles")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	child, err := h.family.CreateChild(r.Context(), p.UserID, req.toService(picture))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	view := memberView(child)
	view["balance"] = money.FormatMinor(0)
	respondJSON(w, http.StatusCreated, view)
}

func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	children, err := h.family.Children(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(children, childView))
}

type childDepositRequest struct {
	ChildID int64       `json:"child_id" validate:"required,gt=0"`
	Amount  json.Number `json:"amount" validate:"required,amount"`
}

func (h *Handler) DepositToChild(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req childDepositRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.family.DepositToChild(r.Context(), p.UserID, req.ChildID, amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"child_id":       req.ChildID,
		"amount":         money.FormatMinor(result.Amount),
		"parent_balance": money.FormatMinor(result.ParentBalance),
		"child_balance":  money.FormatMinor(result.ChildBalance),
		"currency":       money.Currency,
	})
}

type createTaskRequest struct {
	ChildID      int64       `json:"child_id" validate:"required,gt=0"`
	Name         string      `json:"name" validate:"required,max=200"`
	Description  *string     `json:"description" validate:"omitempty,max=2000"`
	RewardAmount json.Number `json:"reward_amount"`
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	reward, err := parseOptionalAmount("reward_amount", req.RewardAmount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	picture, err := h.savePicture(r, "tasks")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	task, err := h.tasks.CreateTask(r.Context(), services.CreateTaskRequest{
		ParentID:     p.UserID,
		ChildID:      req.ChildID,
		Name:         req.Name,
		Description:  req.Description,
		RewardAmount: reward,
		Picture:      picture,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, taskView(task))
}

func (h *Handler) ListParentTasks(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var childID *int64
	if raw := r.URL.Query().Get("child_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeServiceError(w, r, validator.FieldErrors{"child_id": "must be a positive id"})
			return
		}
		childID = &id
	}
	tasks, err := h.tasks.ListForParent(r.Context(), p.UserID, childID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(tasks, taskView))
}

type verifyTaskRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

func (h *Handler) VerifyTask(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req verifyTaskRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	task, err := h.tasks.Verify(r.Context(), taskID, p.UserID, *req.Accept)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, taskView(task))
}

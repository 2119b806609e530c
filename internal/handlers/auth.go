package handlers

import (
	"net/http"

	"familybank/internal/auth"
	"familybank/internal/models"
	"familybank/internal/services"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

func (req registerRequest) toService(picture *string) services.RegisterRequest {
	return services.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Picture:   picture,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
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
	parent, err := h.family.RegisterParent(r.Context(), req.toService(picture))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, parent.ID, models.RoleParent, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  memberView(parent),
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	user, err := h.family.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, user.Role, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"user_id": user.ID,
		"role":    user.Role,
	})
}

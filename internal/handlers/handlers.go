package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"familybank/internal/middleware"
	"familybank/internal/services"
	"familybank/internal/validator"
)

const maxBodyBytes = 10 << 20

var errBadPayload = errors.New("invalid payload")

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondFields(w http.ResponseWriter, fields map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

// writeServiceError is the single place service errors become HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fields validator.FieldErrors
	var verr *services.ValidationError
	switch {
	case errors.As(err, &fields):
		respondFields(w, fields)
	case errors.As(err, &verr):
		respondFields(w, map[string]string{verr.Field: verr.Message})
	case errors.Is(err, errBadPayload):
		respondError(w, http.StatusBadRequest, "invalid payload")
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid amount")
	case errors.Is(err, services.ErrSameAccountTransfer):
		respondError(w, http.StatusBadRequest, "cannot transfer to the same account")
	case errors.Is(err, services.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidState):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrDuplicate):
		respondError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func principal(w http.ResponseWriter, r *http.Request) (middleware.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
	}
	return p, ok
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// decodeRequest fills dst from a JSON body or a multipart form and runs the
// validate tags.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return errBadPayload
		}
		if err := decodeForm(r.MultipartForm.Value, dst); err != nil {
			return err
		}
	} else if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadPayload
	}
	return validator.Struct(dst)
}

// decodeForm copies form values into the struct fields named by their json tag.
func decodeForm(values map[string][]string, dst any) error {
	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	fields := validator.FieldErrors{}
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		raw, ok := values[name]
		if name == "" || !ok || len(raw) == 0 {
			continue
		}
		field := v.Field(i)
		value := strings.TrimSpace(raw[0])
		if field.Kind() == reflect.Ptr {
			field.Set(reflect.New(field.Type().Elem()))
			field = field.Elem()
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(value)
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				fields[name] = "must be a whole number"
				continue
			}
			field.SetInt(n)
		case reflect.Bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				fields[name] = "must be true or false"
				continue
			}
			field.SetBool(b)
		}
	}
	if len(fields) > 0 {
		return fields
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, validator.FieldErrors{name: "must be a positive id"}
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// savePicture stores the optional "picture" upload before any transaction starts.
func (h *Handler) savePicture(r *http.Request, folder string) (*string, error) {
	if !isMultipart(r) || r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile("picture")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errBadPayload
	}
	defer file.Close()
	path, err := h.files.Save(r.Context(), folder, header.Filename, file)
	if err != nil {
		return nil, fmt.Errorf("save picture: %w", err)
	}
	return &path, nil
}

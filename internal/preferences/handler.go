package preferences

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/api"
	"github.com/taskpilot/taskpilot/internal/auth"
)

// Handler exposes the per-user assistant preferences surface.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) caller(r *http.Request) (uuid.UUID, bool) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Get returns the caller's preferences, defaults included for users who
// never saved any.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	prefs, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		slog.Error("getting preferences", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	api.JSON(w, http.StatusOK, prefs)
}

// Update applies a partial preferences update.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	prefs, err := h.svc.Update(r.Context(), userID, &req)
	if err != nil {
		h.handlePrefsError(w, userID, err)
		return
	}
	api.JSON(w, http.StatusOK, prefs)
}

// PutShortcut teaches or replaces one named shortcut.
func (h *Handler) PutShortcut(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req ShortcutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	prefs, err := h.svc.SetShortcut(r.Context(), userID, chi.URLParam(r, "name"), &req)
	if err != nil {
		h.handlePrefsError(w, userID, err)
		return
	}
	api.JSON(w, http.StatusOK, prefs)
}

// DeleteShortcut forgets a learned shortcut.
func (h *Handler) DeleteShortcut(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	prefs, err := h.svc.DeleteShortcut(r.Context(), userID, chi.URLParam(r, "name"))
	if err != nil {
		h.handlePrefsError(w, userID, err)
		return
	}
	api.JSON(w, http.StatusOK, prefs)
}

func (h *Handler) handlePrefsError(w http.ResponseWriter, userID uuid.UUID, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		api.HandleError(w, api.NewValidationError(err.Error()))
	case errors.Is(err, ErrShortcutNotFound):
		api.HandleError(w, api.NewNotFoundError("shortcut not found"))
	default:
		slog.Error("updating preferences", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

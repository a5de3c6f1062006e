package actions

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/api"
	"github.com/taskpilot/taskpilot/internal/auth"
)

type Handler struct {
	pipeline *Pipeline
}

func NewHandler(pipeline *Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
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

func (h *Handler) actionID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "actionID"))
}

// ListPending returns the caller's unconfirmed actions, newest first.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	list, err := h.pipeline.ListPending(r.Context(), userID)
	if err != nil {
		slog.Error("listing pending actions", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	actionID, err := h.actionID(r)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid action ID"))
		return
	}

	action, err := h.pipeline.Get(r.Context(), actionID, userID)
	if err != nil {
		handleActionError(w, err, "fetching action")
		return
	}

	api.JSON(w, http.StatusOK, action)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	actionID, err := h.actionID(r)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid action ID"))
		return
	}

	action, err := h.pipeline.Confirm(r.Context(), actionID, userID)
	if err != nil {
		handleActionError(w, err, "confirming action")
		return
	}

	api.JSON(w, http.StatusOK, action)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	actionID, err := h.actionID(r)
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid action ID"))
		return
	}

	action, err := h.pipeline.Reject(r.Context(), actionID, userID)
	if err != nil {
		handleActionError(w, err, "rejecting action")
		return
	}

	api.JSON(w, http.StatusOK, action)
}

func handleActionError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrValidation):
		api.HandleError(w, api.NewValidationError(err.Error()))
	case errors.Is(err, ErrNotFound):
		api.HandleError(w, api.NewNotFoundError("action not found"))
	case errors.Is(err, ErrForbidden):
		api.HandleError(w, api.ErrOwnershipViolation)
	case errors.Is(err, ErrInvalidState):
		api.HandleError(w, api.NewConflictError("action is no longer pending"))
	default:
		slog.Error(op, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

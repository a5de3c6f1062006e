package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/actions"
	"github.com/taskpilot/taskpilot/internal/api"
	"github.com/taskpilot/taskpilot/internal/auth"
	"github.com/taskpilot/taskpilot/internal/events"
	"github.com/taskpilot/taskpilot/internal/metrics"
	"github.com/taskpilot/taskpilot/internal/quota"
)

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

type Handler struct {
	svc      *Service
	hub      *events.Hub
	validate *validator.Validate
}

func NewHandler(svc *Service, hub *events.Hub) *Handler {
	return &Handler{
		svc:      svc,
		hub:      hub,
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

// Chat runs one turn: the response carries either a proposed action waiting
// for confirmation or a "could not understand" reply, plus current quota.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	result, err := h.svc.Turn(r.Context(), userID, req.Message)
	if err != nil {
		h.handleTurnError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleTurnError(w http.ResponseWriter, err error) {
	var exceeded *quota.ExceededError
	switch {
	case errors.As(err, &exceeded):
		msg := fmt.Sprintf("AI request limit reached, try again at %s",
			exceeded.Status.ResetsAt.Format("15:04 MST"))
		api.JSONWithError(w, http.StatusTooManyRequests, exceeded.Status, msg)
	case errors.Is(err, actions.ErrDisabled):
		api.HandleError(w, &api.AppError{Code: http.StatusServiceUnavailable, Message: "ai features are disabled"})
	case errors.Is(err, ErrInputRejected):
		api.HandleError(w, api.NewBadRequestError("message could not be processed"))
	case errors.Is(err, ErrUpstream):
		api.HandleError(w, &api.AppError{Code: http.StatusBadGateway, Message: "could not understand or process the message, please try again"})
	case errors.Is(err, actions.ErrValidation):
		api.HandleError(w, api.NewValidationError(err.Error()))
	default:
		slog.Error("chat turn", "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

// Events streams the caller's events over SSE until the client disconnects.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, cancel := h.hub.Subscribe(userID)
	defer cancel()

	metrics.SSEConnectedClients.Inc()
	defer metrics.SSEConnectedClients.Dec()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				slog.Error("marshaling SSE event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

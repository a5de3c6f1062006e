package tasks

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

func callerID(r *http.Request) (uuid.UUID, bool) {
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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	task, err := h.svc.Create(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		handleTaskError(w, err, "creating task")
		return
	}

	api.JSON(w, http.StatusCreated, task)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	filter := Filter{
		Status:        r.URL.Query().Get("status"),
		TitleContains: r.URL.Query().Get("title_contains"),
	}

	list, err := h.svc.Query(r.Context(), userID, filter)
	if err != nil {
		handleTaskError(w, err, "listing tasks")
		return
	}

	api.JSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	task := GetTaskFromContext(r.Context())
	if task == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSON(w, http.StatusOK, task)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	task := GetTaskFromContext(r.Context())
	if task == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	updated, err := h.svc.Update(r.Context(), task.UserID, task.ID, &req)
	if err != nil {
		handleTaskError(w, err, "updating task")
		return
	}

	api.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	task := GetTaskFromContext(r.Context())
	if task == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), task.UserID, task.ID); err != nil {
		handleTaskError(w, err, "deleting task")
		return
	}

	api.JSONMessage(w, http.StatusOK, "task deleted successfully")
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	task := GetTaskFromContext(r.Context())
	if task == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	updated, err := h.svc.Complete(r.Context(), task.UserID, task.ID)
	if err != nil {
		handleTaskError(w, err, "completing task")
		return
	}

	api.JSON(w, http.StatusOK, updated)
}

// OwnershipMiddleware verifies task ownership before allowing access.
func (h *Handler) OwnershipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			api.HandleError(w, api.ErrUnauthorized)
			return
		}

		taskIDStr := chi.URLParam(r, "taskID")
		taskID, err := uuid.Parse(taskIDStr)
		if err != nil {
			api.HandleError(w, api.NewBadRequestError("invalid task ID"))
			return
		}

		task, err := h.svc.repo.GetByID(r.Context(), taskID)
		if err != nil {
			slog.Error("fetching task for ownership check", "error", err)
			api.HandleError(w, api.ErrInternalServer)
			return
		}
		if task == nil {
			api.HandleError(w, api.NewNotFoundError("task not found"))
			return
		}

		if task.UserID.String() != claims.UserID {
			slog.Warn("ownership violation attempt",
				"task_id", taskID,
				"task_owner", task.UserID,
				"requester", claims.UserID,
				"path", r.URL.Path,
				"method", r.Method,
			)
			api.HandleError(w, api.ErrOwnershipViolation)
			return
		}

		ctx := SetTaskInContext(r.Context(), task)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func handleTaskError(w http.ResponseWriter, err error, op string) {
	var ambiguous *AmbiguousError
	switch {
	case errors.Is(err, ErrValidation):
		api.HandleError(w, api.NewValidationError(err.Error()))
	case errors.Is(err, ErrNotFound):
		api.HandleError(w, api.ErrNotFound)
	case errors.Is(err, ErrForbidden):
		api.HandleError(w, api.ErrOwnershipViolation)
	case errors.As(err, &ambiguous):
		api.HandleError(w, api.NewConflictError(err.Error()))
	default:
		slog.Error(op, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

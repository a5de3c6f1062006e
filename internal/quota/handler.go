package quota

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/api"
	"github.com/taskpilot/taskpilot/internal/auth"
)

// Handler exposes the read-only quota surface for UI display.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get returns the authenticated user's usage for ?period=day|hour (day by
// default). No side effects beyond lazy record creation and rollover.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	period := Period(r.URL.Query().Get("period"))
	if period == "" {
		period = PeriodDay
	}
	if !period.Valid() {
		api.HandleError(w, api.NewBadRequestError("period must be day or hour"))
		return
	}

	status, err := h.svc.UsageStats(r.Context(), userID, period)
	if err != nil {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, status)
}

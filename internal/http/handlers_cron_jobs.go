package httpx

import (
	"errors"
	"net/http"

	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/service"
)

// CronJobHandlers provides HTTP handlers for the scheduled job families.
type CronJobHandlers struct {
	Svc *service.CronJobService
}

// List handles GET /cron-jobs: the toggle state of every family.
func (h *CronJobHandlers) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"items": h.Svc.States()})
}

// SetEnabled handles PUT /cron-jobs/{type} with body {"enabled": bool}.
func (h *CronJobHandlers) SetEnabled(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("enabled is required"),
		})
		return
	}

	jobType := model.CronJobType(r.PathValue("type"))
	if err := h.Svc.SetEnabled(r.Context(), jobType, *req.Enabled, principal.Actor()); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"type": jobType, "enabled": *req.Enabled})
}

// Run handles POST /cron-jobs/{type}/run: manually trigger one family. A
// disabled family records a skipped run rather than erroring.
func (h *CronJobHandlers) Run(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	triggeredBy := "manual"
	if principal != nil {
		triggeredBy = principal.Actor()
	}

	run, err := h.Svc.Trigger(r.Context(), model.CronJobType(r.PathValue("type")), triggeredBy)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// History handles GET /cron-jobs/{type}/history.
func (h *CronJobHandlers) History(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Svc.History(r.Context(), model.CronJobType(r.PathValue("type")), ParsePage(r.URL.Query()))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": runs})
}

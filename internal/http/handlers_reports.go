package httpx

import (
	"net/http"

	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
	"github.com/crmbridge/backend/internal/service"
)

// ReportHandlers serves persisted report snapshots for the admin console.
type ReportHandlers struct {
	Svc *service.ReportService
}

// List returns report snapshots, newest first.
func (h *ReportHandlers) List(w http.ResponseWriter, r *http.Request) {
	page := ParsePage(r.URL.Query())
	reports, err := h.Svc.List(r.Context(), page)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// Get returns one report snapshot by id.
func (h *ReportHandlers) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// Create stores a new report snapshot attributed to the calling admin.
func (h *ReportHandlers) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := GetPrincipalFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	var req model.CreateReportRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	report, err := h.Svc.Create(r.Context(), &req, principal.Actor())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, report)
}

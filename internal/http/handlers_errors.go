package httpx

import (
	"errors"
	"net/http"

	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/service"
)

// ErrorLogHandlers provides HTTP handlers for captured application errors.
type ErrorLogHandlers struct {
	Svc *service.ErrorLogService
}

// List handles GET /errors.
func (h *ErrorLogHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Svc.List(r.Context(), ParseErrorFilter(q), ParsePage(q))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// Get handles GET /errors/{id}.
func (h *ErrorLogHandlers) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// Record handles POST /errors.
func (h *ErrorLogHandlers) Record(w http.ResponseWriter, r *http.Request) {
	var req model.RecordErrorLogRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	entry, err := h.Svc.Record(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, entry)
}

// Resolve handles PATCH /errors/{id}/resolve, stamping the caller as resolver.
func (h *ErrorLogHandlers) Resolve(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	resolvedBy := principal.Actor()
	entry, err := h.Svc.Resolve(r.Context(), r.PathValue("id"), resolvedBy)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// Unresolve handles PATCH /errors/{id}/unresolve.
func (h *ErrorLogHandlers) Unresolve(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Svc.Reopen(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}

// BulkDelete handles DELETE /errors with a body listing ids.
func (h *ErrorLogHandlers) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	deleted, err := h.Svc.BulkDelete(r.Context(), req.IDs)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

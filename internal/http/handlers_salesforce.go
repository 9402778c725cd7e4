package httpx

import (
	"net/http"

	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
	"github.com/crmbridge/backend/internal/service"
)

// SalesforceHandlers exposes the API-key-gated CRM relay endpoints.
type SalesforceHandlers struct {
	Svc *service.SalesforceService
}

// Token proxies a session token request to the upstream CRM.
func (h *SalesforceHandlers) Token(w http.ResponseWriter, r *http.Request) {
	raw, err := h.Svc.Token(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// Call accepts an outbound CRM call of the given action kind and queues it
// for asynchronous delivery. The action comes from the route, never from the
// request body, so an API key scoped to one endpoint cannot smuggle another.
func (h *SalesforceHandlers) Call(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipalFromContext(r.Context())
		if !ok {
			WriteAppError(w, apperrors.Unauthorized("authentication required"))
			return
		}

		var req model.OutboundCallRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		req.Action = action

		queued, err := h.Svc.Relay(r.Context(), *principal, &req)
		if err != nil {
			WriteAppError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, map[string]any{
			"job_id": queued.ID,
			"queue":  queued.Queue,
			"state":  queued.State,
		})
	}
}

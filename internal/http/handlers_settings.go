package httpx

import (
	"errors"
	"net/http"

	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/service"
)

// SettingsHandlers provides HTTP handlers for typed system settings.
type SettingsHandlers struct {
	Svc *service.SettingsService
}

// List handles GET /settings with an optional ?category= filter, or
// GET /settings?category=X&key=Y for a single decoded value.
func (h *SettingsHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")
	key := q.Get("key")

	if key != "" {
		if category == "" {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "validation",
				Err:     errors.New("category is required when key is set"),
			})
			return
		}
		setting, value, err := h.Svc.Get(r.Context(), category, key)
		if err != nil {
			WriteAppError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"setting": setting, "value": value})
		return
	}

	settings, err := h.Svc.List(r.Context(), category)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": settings})
}

// Upsert handles PUT /settings. The value must match the declared type.
func (h *SettingsHandlers) Upsert(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	var req model.UpsertSettingRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	setting, err := h.Svc.Upsert(r.Context(), &req, principal.Actor())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, setting)
}

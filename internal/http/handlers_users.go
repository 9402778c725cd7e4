package httpx

import (
	"net/http"
	"strings"

	domainauth "github.com/crmbridge/backend/internal/domain/auth"
	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/service"
)

// UserHandlers provides HTTP handlers for account administration.
type UserHandlers struct {
	Svc *service.UserService
}

// List handles GET /user with optional role/active/search filters.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.UserFilter{Search: strings.TrimSpace(q.Get("search"))}
	if v := q.Get("role"); v != "" {
		role := domainauth.Role(strings.ToUpper(v))
		filter.Role = &role
	}
	filter.Active = parseBoolParam(q.Get("active"))

	users, err := h.Svc.List(r.Context(), filter, ParsePage(q))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": users})
}

// Get handles GET /user/{id}.
func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// Create handles POST /user.
func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, user)
}

// Update handles PUT /user/{id}.
func (h *UserHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.Svc.Update(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/service"
)

// auditCacheModule scopes cached audit reads for invalidation.
const auditCacheModule = "audit"

// AuditHandlers provides HTTP handlers for the audit trail.
type AuditHandlers struct {
	Svc   *service.AuditService
	Cache *core.ResponseCacheService
}

var auditListSpec = core.CacheSpec{
	Module:       auditCacheModule,
	Endpoint:     "list",
	IncludeQuery: true,
	TTL:          30 * time.Second,
}

var auditStatsSpec = core.CacheSpec{
	Module:       auditCacheModule,
	Endpoint:     "stats",
	IncludeQuery: true,
	TTL:          time.Minute,
}

// List handles GET /audit with filter/pagination query parameters. Responses
// are briefly cached per query string.
func (h *AuditHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload, _, err := h.Cache.GetOrCompute(r.Context(), auditListSpec, "", q.Encode(), func(ctx context.Context) ([]byte, error) {
		page, err := h.Svc.List(ctx, ParseAuditFilter(q), ParsePage(q))
		if err != nil {
			return nil, err
		}
		return json.Marshal(page)
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	writeRawJSON(w, payload)
}

// Stats handles GET /audit/stats.
func (h *AuditHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload, _, err := h.Cache.GetOrCompute(r.Context(), auditStatsSpec, "", q.Encode(), func(ctx context.Context) ([]byte, error) {
		stats, err := h.Svc.Stats(ctx, ParseAuditFilter(q))
		if err != nil {
			return nil, err
		}
		return json.Marshal(stats)
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	writeRawJSON(w, payload)
}

// Export handles GET /audit/export?format=csv|json|xlsx. The format is
// validated before any rows are fetched.
func (h *AuditHandlers) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload, format, err := h.Svc.Export(r.Context(), q.Get("format"), ParseAuditFilter(q))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	filename := fmt.Sprintf("audit-export-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// MarkDelivered handles POST /audit/mark-delivered with a job id batch.
// Re-marking already-delivered ids is a no-op.
func (h *AuditHandlers) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobIDs []string `json:"job_ids"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.JobIDs) == 0 {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("job_ids is required"),
		})
		return
	}

	updated, err := h.Svc.MarkDelivered(r.Context(), req.JobIDs)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	h.Cache.InvalidateModule(r.Context(), auditCacheModule)
	WriteJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

// Record handles POST /audit, used by trusted internal callers to append an
// entry directly.
func (h *AuditHandlers) Record(w http.ResponseWriter, r *http.Request) {
	var req model.RecordAuditLogRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	entry, err := h.Svc.Record(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	h.Cache.InvalidateModule(r.Context(), auditCacheModule)
	WriteJSON(w, http.StatusCreated, entry)
}

// writeRawJSON writes pre-encoded JSON (from the cache layer) verbatim.
func writeRawJSON(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

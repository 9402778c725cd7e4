package httpx

import (
	"net/http"
	"strconv"

	"github.com/crmbridge/backend/internal/service"
)

// QueueHandlers serves queue observability for operators.
type QueueHandlers struct {
	Svc *service.DispatchService
}

// Stats returns per-queue job counts and their aggregate.
func (h *QueueHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, totals, err := h.Svc.Stats(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"queues": stats, "totals": totals})
}

// DeadLetters lists exhausted job ids on one queue for manual inspection.
func (h *QueueHandlers) DeadLetters(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.ParseInt(raw, 10, 64)
	}
	ids, err := h.Svc.DeadLetters(r.Context(), r.PathValue("queue"), limit)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"queue": r.PathValue("queue"), "job_ids": ids})
}

// Health classifies each queue by its failure ratio.
func (h *QueueHandlers) Health(w http.ResponseWriter, r *http.Request) {
	overall, queues, err := h.Svc.OverallHealth(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": overall,
		"queues": queues,
	})
}

package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/service"
)

// HealthHandlers serves the unauthenticated service health endpoint. The
// response is cached for a few seconds so load-balancer probes cannot turn
// into a Redis scan amplifier.
type HealthHandlers struct {
	Dispatch *service.DispatchService
	Store    core.CacheRepository
	Cache    *core.ResponseCacheService
	Now      func() time.Time
}

var healthSpec = core.CacheSpec{
	Module:   "health",
	Endpoint: "status",
	TTL:      10 * time.Second,
}

type healthResponse struct {
	Status    model.HealthStatus  `json:"status"`
	Cache     string              `json:"cache"`
	Queues    []model.QueueHealth `json:"queues"`
	CheckedAt time.Time           `json:"checked_at"`
}

// Check reports overall queue health plus cache connectivity. A broken cache
// connection degrades the status but never fails the endpoint: probes need an
// answer, not an error.
func (h *HealthHandlers) Check(w http.ResponseWriter, r *http.Request) {
	payload, _, err := h.Cache.GetOrCompute(r.Context(), healthSpec, "", "", func(ctx context.Context) ([]byte, error) {
		return json.Marshal(h.check(ctx))
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	writeRawJSON(w, payload)
}

func (h *HealthHandlers) check(ctx context.Context) healthResponse {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	resp := healthResponse{
		Status:    model.HealthHealthy,
		Cache:     "ok",
		CheckedAt: now().UTC(),
	}

	if err := h.Store.Health(ctx); err != nil {
		resp.Cache = "unavailable"
		resp.Status = model.HealthCritical
		return resp
	}

	overall, queues, err := h.Dispatch.OverallHealth(ctx)
	if err != nil {
		resp.Status = model.HealthWarning
		return resp
	}
	resp.Status = overall
	resp.Queues = queues
	return resp
}

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crmbridge/backend/internal/domain/model"
)

// handleOutboundCall delivers a queued CRM call to the upstream API and
// records the attempt's status and duration in the audit trail.
func (r *Runner) handleOutboundCall(ctx context.Context, job *model.Job) error {
	var payload model.OutboundCallPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode outbound call payload: %w", err)
	}
	if payload.Endpoint == "" || payload.Method == "" {
		return errors.New("outbound call payload missing endpoint or method")
	}
	if r.baseURL == "" {
		return errors.New("CRM base URL not configured")
	}

	url := strings.TrimSuffix(r.baseURL, "/") + payload.Endpoint
	req, err := http.NewRequestWithContext(ctx, payload.Method, url, bytesReader(payload.Body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if len(payload.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := r.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // body is drained below

	// Drain a bounded slice of the body so the connection can be reused.
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
		r.logger.WarnContext(ctx, "drain response body", "job_id", job.ID, "error", err)
	}

	r.recordCallAttempt(ctx, job, payload, resp.StatusCode, elapsed)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("upstream returned %d for %s %s", resp.StatusCode, payload.Method, payload.Endpoint)
	}
	return nil
}

// recordCallAttempt writes the delivery outcome next to the dispatch entry,
// sharing its job id so MarkDelivered covers both.
func (r *Runner) recordCallAttempt(ctx context.Context, job *model.Job, payload model.OutboundCallPayload, status int, elapsed time.Duration) {
	if r.audit == nil {
		return
	}
	if _, err := r.audit.Record(ctx, &model.RecordAuditLogRequest{
		Actor:      payload.Actor,
		ActorKind:  "worker",
		Action:     payload.Action,
		Endpoint:   payload.Endpoint,
		Method:     payload.Method,
		StatusCode: status,
		DurationMS: elapsed.Milliseconds(),
		JobID:      &job.ID,
		Message:    fmt.Sprintf("outbound call attempt %d", job.AttemptsMade),
	}); err != nil {
		r.logger.ErrorContext(ctx, "record call attempt failed",
			"job_id", job.ID, "error", err)
	}
}

// bytesReader returns an io.Reader for b, or nil if b is empty.
func bytesReader(b []byte) io.Reader {
	if len(b) == 0 {
		return nil
	}
	return bytes.NewReader(b)
}

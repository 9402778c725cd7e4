package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/crmbridge/backend/internal/domain/auth"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
)

const maxTokenResponseBytes = 16 * 1024

// SalesforceServiceOptions groups dependencies for SalesforceService.
type SalesforceServiceOptions struct {
	Logger   *slog.Logger
	Dispatch *DispatchService
	Audit    *AuditService

	// TokenURL is the upstream CRM token endpoint proxied by Token.
	// Empty disables token retrieval.
	TokenURL   string
	HTTPClient *http.Client
}

// SalesforceService turns CRM API calls into queued outbound-call jobs, with
// one audit entry per dispatch tying the caller to the assigned job id. It
// also proxies upstream session token retrieval for API-key clients.
type SalesforceService struct {
	logger   *slog.Logger
	dispatch *DispatchService
	audit    *AuditService
	tokenURL string
	http     *http.Client
}

// NewSalesforceService constructs a new SalesforceService.
func NewSalesforceService(opts SalesforceServiceOptions) (*SalesforceService, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Dispatch == nil {
		return nil, errors.New("DispatchService is required")
	}
	if opts.Audit == nil {
		return nil, errors.New("AuditService is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SalesforceService{
		logger:   opts.Logger,
		dispatch: opts.Dispatch,
		audit:    opts.Audit,
		tokenURL: opts.TokenURL,
		http:     client,
	}, nil
}

// Token proxies a session token request to the upstream CRM and returns the
// raw JSON body. Unlike the data-mutating endpoints this is synchronous: the
// caller needs the token before it can do anything else.
func (s *SalesforceService) Token(ctx context.Context) (json.RawMessage, error) {
	if s.tokenURL == "" {
		return nil, apperrors.Internal("token retrieval is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tokenURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "building token request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeTimeout, "upstream token request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "reading token response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		s.logger.Warn("token retrieval rejected upstream", "status", resp.StatusCode)
		return nil, apperrors.Unauthorized(fmt.Sprintf("upstream rejected token request with status %d", resp.StatusCode))
	}
	if !json.Valid(body) {
		return nil, apperrors.Internal("upstream returned a non-JSON token response")
	}
	return json.RawMessage(body), nil
}

// MustNewSalesforceService constructs a new SalesforceService and panics on error.
func MustNewSalesforceService(opts SalesforceServiceOptions) *SalesforceService {
	svc, err := NewSalesforceService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// Relay validates an outbound CRM call, places it on the outbound-call
// queue, and records the dispatch in the audit trail. The audit entry is
// written after the enqueue succeeds so its job id is always real; an audit
// write failure is logged but does not undo the dispatch.
func (s *SalesforceService) Relay(ctx context.Context, principal domainauth.Principal, req *model.OutboundCallRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("outbound call request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	payload, err := json.Marshal(model.OutboundCallPayload{
		Action:   req.Action,
		Endpoint: req.Endpoint,
		Method:   strings.ToUpper(req.Method),
		Body:     req.Body,
		Actor:    principal.Actor(),
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode outbound call payload")
	}

	job, err := s.dispatch.Enqueue(ctx, &model.EnqueueRequest{
		Queue:   model.QueueOutboundCall,
		Payload: payload,
		Options: req.Options,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.audit.Record(ctx, &model.RecordAuditLogRequest{
		Actor:     principal.Actor(),
		ActorKind: string(principal.Kind),
		Action:    req.Action,
		Endpoint:  req.Endpoint,
		Method:    strings.ToUpper(req.Method),
		JobID:     &job.ID,
		Message:   "outbound call queued",
	}); err != nil {
		s.logger.ErrorContext(ctx, "audit record failed for dispatched job",
			"job_id", job.ID, "error", err)
	}
	return job, nil
}

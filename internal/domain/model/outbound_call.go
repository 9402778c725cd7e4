package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// allowedOutboundMethods lists the HTTP verbs an outbound CRM call may use.
var allowedOutboundMethods = map[string]bool{
	"GET": true, "POST": true, "PATCH": true, "PUT": true, "DELETE": true,
}

// OutboundCallRequest describes a CRM API call to be executed asynchronously
// through the outbound-call queue.
type OutboundCallRequest struct {
	// Action names the business operation, e.g. "update_contact".
	Action string `json:"action"`
	// Endpoint is the CRM API path the worker will call.
	Endpoint string          `json:"endpoint"`
	Method   string          `json:"method"`
	Body     json.RawMessage `json:"body,omitempty"`
	Options  JobOptions      `json:"options"`
}

// Validate validates the OutboundCallRequest fields.
func (r *OutboundCallRequest) Validate() error {
	if r.Action == "" {
		return errors.New("action is required")
	}
	if !strings.HasPrefix(r.Endpoint, "/") {
		return errors.New("endpoint must be an absolute path")
	}
	if !allowedOutboundMethods[strings.ToUpper(r.Method)] {
		return fmt.Errorf("unsupported method: %q", r.Method)
	}
	return nil
}

// OutboundCallPayload is the queue payload a worker executes.
type OutboundCallPayload struct {
	Action   string          `json:"action"`
	Endpoint string          `json:"endpoint"`
	Method   string          `json:"method"`
	Body     json.RawMessage `json:"body,omitempty"`
	// Actor is carried for audit reconciliation on the worker side.
	Actor string `json:"actor"`
}

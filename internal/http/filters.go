package httpx

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/crmbridge/backend/internal/domain/model"
)

const (
	// StrTrue represents the string "true" for boolean query parameters.
	StrTrue = "true"
	// StrFalse represents the string "false" for boolean query parameters.
	StrFalse = "false"

	// colFilterPrefix marks query parameters treated as column filters
	// (e.g. ?col_action=salesforce.call).
	colFilterPrefix = "col_"
)

// ParsePage extracts pagination bounds from query parameters. Values are
// sanitized by the model (default/max limit, non-negative offset).
func ParsePage(q url.Values) model.Page {
	page := model.Page{}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		page.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		page.Offset = v
	}
	return page.Sanitize()
}

// ParseAuditFilter builds an audit log filter from query parameters. Unknown
// parameters are ignored; column filters use the col_ prefix and are
// whitelisted by the repository.
func ParseAuditFilter(q url.Values) model.AuditLogFilter {
	filter := model.AuditLogFilter{
		Actor:     strings.TrimSpace(q.Get("actor")),
		ActorKind: strings.TrimSpace(q.Get("actor_kind")),
		Action:    strings.TrimSpace(q.Get("action")),
		Method:    strings.ToUpper(strings.TrimSpace(q.Get("method"))),
		Search:    strings.TrimSpace(q.Get("search")),
		From:      parseTimeParam(q.Get("from")),
		To:        parseTimeParam(q.Get("to")),
		Delivered: parseBoolParam(q.Get("delivered")),
	}
	if v, err := strconv.Atoi(q.Get("status_code")); err == nil {
		filter.StatusCode = &v
	}
	for key, values := range q {
		if !strings.HasPrefix(key, colFilterPrefix) || len(values) == 0 {
			continue
		}
		if filter.Columns == nil {
			filter.Columns = make(map[string]string)
		}
		filter.Columns[strings.TrimPrefix(key, colFilterPrefix)] = values[0]
	}
	return filter
}

// ParseErrorFilter builds an error log filter from query parameters.
func ParseErrorFilter(q url.Values) model.ErrorLogFilter {
	return model.ErrorLogFilter{
		Type:        strings.TrimSpace(q.Get("type")),
		Source:      strings.TrimSpace(q.Get("source")),
		Environment: strings.TrimSpace(q.Get("environment")),
		Search:      strings.TrimSpace(q.Get("search")),
		Resolved:    parseBoolParam(q.Get("resolved")),
		From:        parseTimeParam(q.Get("from")),
		To:          parseTimeParam(q.Get("to")),
	}
}

// parseBoolParam returns a pointer for "true"/"false", nil otherwise so
// absent parameters mean "no filter".
func parseBoolParam(v string) *bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case StrTrue:
		b := true
		return &b
	case StrFalse:
		b := false
		return &b
	default:
		return nil
	}
}

// parseTimeParam accepts RFC3339 timestamps or bare dates (2006-01-02).
func parseTimeParam(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the queue worker that executes jobs.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeJanitor runs the maintenance loop: delayed-job promotion,
	// stalled-job requeue, and expired-token cleanup.
	ServiceModeJanitor ServiceMode = "janitor"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeWorker, ServiceModeJanitor}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker, ServiceModeJanitor:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, worker, janitor)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains queue worker service configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker goroutines per queue.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"2"`

	// JobLease is the duration a dequeued job stays leased before the
	// janitor may requeue it.
	JobLease time.Duration `env:"WORKER_JOB_LEASE" envDefault:"30s"`

	// PollInterval is the sleep between polls of an empty queue.
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"1s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.JobLease < 5*time.Second {
		w.JobLease = 5 * time.Second
	}
	if w.PollInterval < 100*time.Millisecond {
		w.PollInterval = 100 * time.Millisecond
	}
}

// JanitorConfig contains janitor service configuration.
type JanitorConfig struct {
	// Interval is the janitor tick interval.
	Interval time.Duration `env:"JANITOR_INTERVAL" envDefault:"15s"`
}

// Sanitize applies guardrails to janitor configuration values.
func (j *JanitorConfig) Sanitize() {
	if j.Interval < 5*time.Second {
		j.Interval = 5 * time.Second
	}
}

// SalesforceConfig contains upstream CRM configuration.
type SalesforceConfig struct {
	// BaseURL is the CRM API root outbound calls are delivered against.
	BaseURL string `env:"SALESFORCE_BASE_URL" envDefault:""`

	// TokenURL is the upstream session token endpoint proxied by the
	// GET /v1/salesforce/token route. Empty disables token retrieval.
	TokenURL string `env:"SALESFORCE_TOKEN_URL" envDefault:""`

	// RequestTimeout bounds each outbound CRM HTTP request.
	RequestTimeout time.Duration `env:"SALESFORCE_REQUEST_TIMEOUT" envDefault:"15s"`
}

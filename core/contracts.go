package core

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

var (
	ErrEntryNotFound        = errors.New("core: delivery entry not found")
	ErrServiceNotConfigured = errors.New("core: service not configured")
	ErrSourceAuthFailed     = errors.New("core: source authentication failed")
)

// Handler is the adapter capability: a routing predicate plus a delivery
// operation. CanHandle must stay pure (no I/O, no mutation); Deliver must
// convert every internal failure into a failed DeliveryOutcome.
type Handler interface {
	Name() string
	CanHandle(signal Signal) bool
	Deliver(ctx context.Context, signal Signal) DeliveryOutcome
}

// Registry routes signals to handlers. Route walks registrations in reverse
// order so the most recently registered matching handler wins.
type Registry interface {
	Register(handler Handler) error
	Route(signal Signal) (Handler, bool)
	Reset()
	List() []Handler
}

// DeliveryLogStore persists one entry per signal id. Create and
// RecordOutcome are two independent atomic writes; an interrupted run
// leaves each entry either absent, pending, or carrying a final outcome.
type DeliveryLogStore interface {
	Get(ctx context.Context, signalID string) (DeliveryEntry, error)
	Create(ctx context.Context, entry DeliveryEntry) (DeliveryEntry, error)
	RecordOutcome(ctx context.Context, signalID string, update OutcomeUpdate) (DeliveryEntry, error)
}

// SignalSource is the upstream paginated signals API.
type SignalSource interface {
	Authenticate(ctx context.Context) (string, error)
	FirstPageURL() string
	FetchPage(ctx context.Context, pageURL string, token string) (SignalPage, error)
}

type TransportRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// TransportAdapter executes one outbound HTTP exchange. Implementations own
// their retry budget; callers see only the final response or error.
type TransportAdapter interface {
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// Env resolves environment-sourced settings. The zero value reads the
// process environment; tests substitute a map-backed lookup so transports
// can be exercised without process-global mutation. Settings are read at
// call time, not cached at startup.
type Env func(key string) string

func (e Env) Get(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if e == nil {
		return strings.TrimSpace(os.Getenv(key))
	}
	return strings.TrimSpace(e(key))
}

// MapEnv returns an Env backed by a fixed map, for per-call overrides.
func MapEnv(values map[string]string) Env {
	return func(key string) string {
		return values[key]
	}
}

// Recognized environment setting names.
const (
	EnvSigmaxAuthToken = "SIGMAX_AUTH_TOKEN"
	EnvSigmaxServer    = "SIGMAX_SERVER"
	EnvSignalsUser     = "SIGNALS_USER"
	EnvSignalsPassword = "SIGNALS_PASSWORD"
	EnvSignalsAPIBase  = "SIGNALS_API_BASE"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

package core

import (
	"fmt"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

// HandlerRegistry keeps handlers in registration order and routes signals
// by walking that order in reverse, so deployment-specific handlers added
// after the defaults take precedence without priority numbers. The built-in
// log-only handler is always registered first and matches everything,
// making it the fallback of last resort.
type HandlerRegistry struct {
	mu       sync.RWMutex
	ordered  []Handler
	names    map[string]struct{}
	logger   Logger
	catchAll Handler
}

func NewHandlerRegistry(logger Logger) *HandlerRegistry {
	logger = glog.Ensure(logger)
	registry := &HandlerRegistry{
		logger:   logger,
		catchAll: NewLogOnlyHandler(logger),
	}
	registry.Reset()
	return registry
}

// Register adds a handler under its declared name. Registering a duplicate
// name is rejected: the original silently overwrote earlier registrations,
// which hid wiring mistakes.
func (r *HandlerRegistry) Register(handler Handler) error {
	if r == nil {
		return fmt.Errorf("core: handler registry is nil")
	}
	if handler == nil {
		return fmt.Errorf("core: handler is nil")
	}
	name := strings.TrimSpace(handler.Name())
	if name == "" {
		return fmt.Errorf("core: handler name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("core: handler already registered: %s", name)
	}
	r.names[name] = struct{}{}
	r.ordered = append(r.ordered, handler)
	return nil
}

// Route returns the most recently registered handler whose CanHandle
// accepts the signal. With the catch-all always present the second return
// is false only for an empty registry, which Reset prevents.
func (r *HandlerRegistry) Route(signal Signal) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.ordered) - 1; i >= 0; i-- {
		if r.ordered[i].CanHandle(signal) {
			return r.ordered[i], true
		}
	}
	return nil, false
}

// Reset discards all registrations and re-registers only the catch-all,
// returning the registry to its initial state for deterministic test runs.
func (r *HandlerRegistry) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ordered = []Handler{r.catchAll}
	r.names = map[string]struct{}{r.catchAll.Name(): {}}
}

// List returns handlers in registration order.
func (r *HandlerRegistry) List() []Handler {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handler, len(r.ordered))
	copy(out, r.ordered)
	return out
}

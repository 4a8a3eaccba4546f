package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker exposes circuit breaker state for health reporting. *Client
// implements it.
type Breaker interface {
	CircuitBreakerState() gobreaker.State
	CircuitBreakerCounts() gobreaker.Counts
}

// Condition summarises a provider's breaker state for ops endpoints.
type Condition int

const (
	ConditionUp Condition = iota
	ConditionDegraded
	ConditionDown
)

func (c Condition) String() string {
	switch c {
	case ConditionUp:
		return "up"
	case ConditionDegraded:
		return "degraded"
	default:
		return "down"
	}
}

// ProviderHealth is a point-in-time view of one provider.
type ProviderHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	// LastError is the message of the most recent failure.
	LastError string
}

// Condition maps the breaker state: closed is up, half-open is degraded and
// open is down.
func (h ProviderHealth) Condition() Condition {
	switch h.CircuitState {
	case gobreaker.StateClosed:
		return ConditionUp
	case gobreaker.StateHalfOpen:
		return ConditionDegraded
	default:
		return ConditionDown
	}
}

// Registry tracks providers and the outcome of their latest calls.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	breaker     Breaker
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Register adds a provider, replacing any previous entry with the same name.
func (r *Registry) Register(name string, breaker Breaker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{breaker: breaker}
}

// Observe records the outcome of one call. A nil err is a success.
// Unknown providers are ignored.
func (r *Registry) Observe(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}
	if err == nil {
		e.lastSuccess = r.now()
		return
	}
	e.lastFailure = r.now()
	e.lastError = err.Error()
}

// Lookup returns the health of one provider.
func (r *Registry) Lookup(name string) (ProviderHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return ProviderHealth{}, false
	}
	return e.snapshot(name), true
}

// Snapshot returns the health of every provider ordered by name.
func (r *Registry) Snapshot() []ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, e.snapshot(name))
	}
	slices.SortFunc(out, func(a, b ProviderHealth) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (e *entry) snapshot(name string) ProviderHealth {
	return ProviderHealth{
		Name:          name,
		CircuitState:  e.breaker.CircuitBreakerState(),
		Counts:        e.breaker.CircuitBreakerCounts(),
		LastSuccessAt: timePtr(e.lastSuccess),
		LastFailureAt: timePtr(e.lastFailure),
		LastError:     e.lastError,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

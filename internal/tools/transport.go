package tools

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// ErrUpstreamOpen is returned while a tool backend's breaker is open
var ErrUpstreamOpen = errors.New("tool backend circuit is open")

// BreakerConfig tunes the per-host circuit breakers on tool traffic
type BreakerConfig struct {
	// MaxRequests is how many probes pass through while half-open
	MaxRequests uint32
	// Interval is the closed-state window for clearing counts
	Interval time.Duration
	// Timeout is how long the circuit stays open before probing again
	Timeout time.Duration
	// FailureThreshold is consecutive failures before opening
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the default breaker tuning
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerTransport wraps an http.RoundTripper with one circuit breaker per
// destination host. A flapping search or wiki backend trips its own breaker
// without affecting the other tool backends.
type BreakerTransport struct {
	base     http.RoundTripper
	config   *BreakerConfig
	breakers map[string]*gobreaker.CircuitBreaker
	mu       sync.RWMutex
}

// NewBreakerTransport wraps base with per-host circuit breaking. A nil base
// uses http.DefaultTransport, a nil config uses defaults.
func NewBreakerTransport(base http.RoundTripper, config *BreakerConfig) *BreakerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if config == nil {
		config = DefaultBreakerConfig()
	}
	return &BreakerTransport{
		base:     base,
		config:   config,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// RoundTrip implements http.RoundTripper
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cb := t.breaker(req.URL.Host)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			// Hand the response back anyway; the caller decides what a
			// 5xx body means. The error return only feeds the breaker.
			return resp, fmt.Errorf("%s returned %d", req.URL.Host, resp.StatusCode)
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		log.Warn().
			Str("host", req.URL.Host).
			Msg("Tool backend circuit open, rejecting request")
		return nil, fmt.Errorf("%s: %w", req.URL.Host, ErrUpstreamOpen)
	}

	if resp, ok := result.(*http.Response); ok {
		return resp, nil
	}
	return nil, err
}

func (t *BreakerTransport) breaker(host string) *gobreaker.CircuitBreaker {
	t.mu.RLock()
	cb, exists := t.breakers[host]
	t.mu.RUnlock()
	if exists {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cb, exists = t.breakers[host]; exists {
		return cb
	}

	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("tool-%s", host),
		MaxRequests: t.config.MaxRequests,
		Interval:    t.config.Interval,
		Timeout:     t.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= t.config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Info().
				Str("circuit_breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
	t.breakers[host] = cb
	return cb
}

// Package health implements Kubernetes-style liveness and readiness probes.
//
// Registered checks run periodically in the background. A check flips to
// unhealthy only after failThreshold consecutive failures and recovers after a
// single success, which keeps a briefly flaky dependency from flapping the
// probe endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes a single component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const (
	failThreshold    = 3
	recoverThreshold = 1
)

// check carries one registered probe and its observed state. State is guarded
// by mu; the streak counters are only touched by the single loop goroutine
// driving this check, but sit under the same lock for simplicity.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	mu      sync.Mutex
	healthy bool
	lastErr error
	fails   int
	oks     int
}

func (c *check) eval(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.fn(probeCtx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	if err != nil {
		c.oks = 0
		if c.fails++; c.fails >= failThreshold {
			c.healthy = false
		}
		return
	}
	c.fails = 0
	if c.oks++; c.oks >= recoverThreshold {
		c.healthy = true
	}
}

// status returns the current health flag and, when unhealthy, a message
// suitable for the probe response body.
func (c *check) status() (healthy bool, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.healthy {
		return true, ""
	}
	if c.lastErr != nil {
		return false, c.lastErr.Error()
	}
	return false, "check is unhealthy"
}

// Service aggregates liveness and readiness checks and serves probe endpoints.
type Service struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New returns a Service in the not-ready state. Call SetReady(true) once
// startup has finished.
func New() *Service {
	return &Service{}
}

func (s *Service) register(dst *[]*check, name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*dst = append(*dst, &check{name: name, timeout: timeout, fn: fn, healthy: true})
}

// AddLivenessCheck registers a check that decides whether the process itself
// is functioning (goroutine leaks, deadlocks).
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.register(&s.liveness, name, timeout, fn)
}

// AddReadinessCheck registers a check that decides whether the service can
// take traffic (database reachable, caches warm).
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.register(&s.readiness, name, timeout, fn)
}

// Start launches one goroutine per registered check, each evaluating at the
// given interval until Stop is called or ctx is cancelled. Register all checks
// before calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	all := append(append([]*check(nil), s.liveness...), s.readiness...)
	s.mu.Unlock()

	for _, c := range all {
		go loop(ctx, c, interval)
	}
}

func loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.eval(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.eval(ctx)
		}
	}
}

// SetReady flips the manual readiness gate. Set it to false at the start of
// graceful shutdown so load balancers drain traffic before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check currently passes.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	s.mu.RLock()
	checks := s.readiness
	s.mu.RUnlock()

	for _, c := range checks {
		if ok, _ := c.status(); !ok {
			return false
		}
	}
	return true
}

// Stop cancels the background check goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while liveness checks pass, otherwise 503
// with the failing checks listed.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	checks := append([]*check(nil), s.liveness...)
	s.mu.RUnlock()

	writeProbe(w, failures(checks))
}

// ReadyEndpoint serves /readyz: 200 once SetReady(true) has been called and
// all readiness checks pass.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	checks := append([]*check(nil), s.readiness...)
	s.mu.RUnlock()

	failed := failures(checks)
	if !s.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeProbe(w, failed)
}

func failures(checks []*check) map[string]string {
	failed := make(map[string]string)
	for _, c := range checks {
		if ok, msg := c.status(); !ok {
			failed[c.name] = msg
		}
	}
	return failed
}

func writeProbe(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := probeResponse{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		resp = probeResponse{Status: "unhealthy", Checks: failed}
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

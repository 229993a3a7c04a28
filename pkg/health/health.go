// Package health aggregates dependency probes into liveness and readiness
// endpoints. Each service registers one Check per dependency (Kafka,
// Redis, Postgres, the corpus registry); the readiness handler runs them
// concurrently and reports the worst observed status.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the health state of one component or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// checkTimeout bounds a single probe; a hung dependency must not hang the
// readiness endpoint.
const checkTimeout = 3 * time.Second

// cacheWindow is how long a readiness report is reused before the probes
// run again, so probe storms cannot amplify load on a struggling
// dependency.
const cacheWindow = 2 * time.Second

// Check probes a single dependency.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth is the outcome of one probe.
type ComponentHealth struct {
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report aggregates all probes. Status is the worst component status:
// any down component makes the service down, otherwise any degraded one
// makes it degraded.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

// Checker holds the registered probes and a short-lived cached report.
type Checker struct {
	mu     sync.Mutex
	checks map[string]Check
	last   Report
	lastAt time.Time
}

// NewChecker creates a Checker with no probes registered.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// Register adds a named probe. Re-registering a name replaces the probe.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every probe concurrently, each under its own timeout, and
// returns the aggregated report.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.Lock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.Unlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		CheckedAt:  time.Now().UTC(),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		name, check := name, check
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			start := time.Now()
			result := check(probeCtx)
			result.LatencyMS = time.Since(start).Milliseconds()
			mu.Lock()
			report.Components[name] = result
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	for _, comp := range report.Components {
		if comp.Status == StatusDown {
			report.Status = StatusDown
			break
		}
		if comp.Status == StatusDegraded {
			report.Status = StatusDegraded
		}
	}
	return report
}

// run returns the cached report when it is fresh enough, otherwise runs
// the probes.
func (c *Checker) run(ctx context.Context) Report {
	c.mu.Lock()
	if time.Since(c.lastAt) < cacheWindow && !c.lastAt.IsZero() {
		report := c.last
		c.mu.Unlock()
		return report
	}
	c.mu.Unlock()

	report := c.Run(ctx)

	c.mu.Lock()
	c.last = report
	c.lastAt = time.Now()
	c.mu.Unlock()
	return report
}

// LiveHandler answers liveness probes. It only certifies that the process
// is serving requests; dependency state belongs to readiness.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers readiness probes with the aggregated report. A
// degraded service still reports ready: optional dependencies (cache,
// result store) reduce functionality without making the service unusable.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.run(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}

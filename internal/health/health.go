// Package health reports on the gateway's downstream dependencies.
package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"

	defaultCheckTimeout = 5 * time.Second
)

// Check probes one dependency.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is the outcome of one check.
type Result struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Report aggregates every check.
type Report struct {
	Status    string            `json:"status"`
	Checks    map[string]Result `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Checker runs checks concurrently.
type Checker struct {
	checks  []Check
	timeout time.Duration
	now     func() time.Time
}

func NewChecker(checks ...Check) *Checker {
	return &Checker{checks: checks, timeout: defaultCheckTimeout, now: time.Now}
}

// Run executes every check, each under its own timeout, and waits for all of them.
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{Status: StatusHealthy, Checks: make(map[string]Result, len(c.checks)), Timestamp: c.now().UTC()}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, check := range c.checks {
		check := check
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := check.Run(cctx)
			res := Result{Status: StatusHealthy, DurationMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = StatusDegraded
				res.Error = err.Error()
			}

			mu.Lock()
			report.Checks[check.Name] = res
			if err != nil {
				report.Status = StatusDegraded
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return report
}

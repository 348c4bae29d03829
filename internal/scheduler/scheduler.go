// Package scheduler runs periodic maintenance for in-process state.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/cache"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/security"
)

const jobTimeout = time.Minute

// Job is a named cron task.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler manages cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// New registers jobs; an invalid spec is an error.
func New(logger zerolog.Logger, jobs ...Job) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.Spec, s.wrap(job)); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := job.Run(ctx); err != nil {
			s.logger.Error().Err(err).Str("job", job.Name).Msg("scheduled job failed")
			return
		}
		s.logger.Debug().Str("job", job.Name).Msg("scheduled job finished")
	}
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Maintenance is the state the gateway trims periodically. Nil fields are skipped.
type Maintenance struct {
	Limiter        *security.Limiter
	LimiterIdle    time.Duration
	Anomaly        *security.AnomalyDetector
	Audit          security.Audit
	AuditRetention time.Duration
	Cache          *cache.Memory
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Jobs returns the trim job (every minute) and the prune job (hourly).
func (m Maintenance) Jobs() []Job {
	now := m.Now
	if now == nil {
		now = time.Now
	}
	return []Job{
		{
			Name: "trim",
			Spec: "@every 1m",
			Run: func(context.Context) error {
				var limiters, clients, entries int
				if m.Limiter != nil {
					limiters = m.Limiter.Trim(m.LimiterIdle)
				}
				if m.Anomaly != nil {
					clients = m.Anomaly.Trim()
				}
				if m.Cache != nil {
					entries = m.Cache.Purge()
				}
				m.Logger.Debug().
					Int("limiters", limiters).
					Int("anomaly_clients", clients).
					Int("cache_entries", entries).
					Msg("trimmed in-memory state")
				return nil
			},
		},
		{
			Name: "prune-audit",
			Spec: "@hourly",
			Run: func(ctx context.Context) error {
				if m.Audit == nil {
					return nil
				}
				n, err := m.Audit.Prune(ctx, now().Add(-m.AuditRetention))
				if err != nil {
					return err
				}
				m.Logger.Info().Int64("entries", n).Msg("pruned audit log")
				return nil
			},
		},
	}
}

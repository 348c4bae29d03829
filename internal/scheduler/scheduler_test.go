package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/cache"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/security"
)

func TestInvalidSpecRejected(t *testing.T) {
	_, err := New(zerolog.Nop(), Job{Name: "bad", Spec: "every minute", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := New(zerolog.Nop(), Maintenance{}.Jobs()...)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
	s.Start()
	s.Stop()
}

func TestMaintenanceJobs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	audit := security.NewMemoryAudit()
	require.NoError(t, audit.Record(ctx, security.Entry{Time: now.Add(-8 * 24 * time.Hour), ClientIP: "old"}))
	require.NoError(t, audit.Record(ctx, security.Entry{Time: now.Add(-time.Hour), ClientIP: "new"}))

	limiter := security.NewLimiter(config.RateLimitConfig{Requests: 10, Window: time.Minute})
	_, _ = limiter.Allow("1.2.3.4")

	mem := cache.NewMemory()
	require.NoError(t, mem.Set(ctx, "k", "v", -time.Second))

	jobs := Maintenance{
		Limiter:        limiter,
		LimiterIdle:    0,
		Anomaly:        security.NewAnomalyDetector(nil),
		Audit:          audit,
		AuditRetention: 7 * 24 * time.Hour,
		Cache:          mem,
		Logger:         zerolog.Nop(),
		Now:            func() time.Time { return now },
	}.Jobs()
	require.Len(t, jobs, 2)

	require.NoError(t, jobs[0].Run(ctx))
	_, ok, _ := mem.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, mem.Purge())

	require.NoError(t, jobs[1].Run(ctx))
	stats, err := audit.Stats(ctx, time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, "new", stats.Recent[0].ClientIP)
}

package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllHealthy(t *testing.T) {
	c := NewChecker(
		Check{Name: "tools", Run: func(context.Context) error { return nil }},
		Check{Name: "storage", Run: func(context.Context) error { return nil }},
	)
	r := c.Run(context.Background())
	assert.True(t, r.Healthy())
	assert.Len(t, r.Checks, 2)
}

func TestFailureDegradesWithoutSkippingOthers(t *testing.T) {
	c := NewChecker(
		Check{Name: "tools", Run: func(context.Context) error { return errors.New("connection refused") }},
		Check{Name: "storage", Run: func(context.Context) error { return nil }},
	)
	r := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, "connection refused", r.Checks["tools"].Error)
	assert.Equal(t, StatusHealthy, r.Checks["storage"].Status)
}

func TestChecksRunConcurrentlyUnderTimeout(t *testing.T) {
	c := NewChecker(
		Check{Name: "slow", Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
		Check{Name: "also-slow", Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)
	c.timeout = 50 * time.Millisecond

	start := time.Now()
	r := c.Run(context.Background())
	require.Equal(t, StatusDegraded, r.Status)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Contains(t, r.Checks["slow"].Error, "deadline exceeded")
}

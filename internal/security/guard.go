// Package security validates, rate limits and audits chat requests.
package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

// Report is the outcome of a guard check.
type Report struct {
	Valid    bool
	Request  models.ChatRequest
	Errors   []string
	Warnings []string
}

// Guard runs validation, anomaly detection and auditing in that order.
type Guard struct {
	validator *Validator
	anomaly   *AnomalyDetector
	audit     Audit
	logger    zerolog.Logger
	now       func() time.Time
}

func NewGuard(v *Validator, d *AnomalyDetector, a Audit, logger zerolog.Logger) *Guard {
	if a == nil {
		a = NewMemoryAudit()
	}
	return &Guard{
		validator: v,
		anomaly:   d,
		audit:     a,
		logger:    logger.With().Str("component", "security").Logger(),
		now:       time.Now,
	}
}

// Audit returns the backing audit log.
func (g *Guard) Audit() Audit {
	return g.audit
}

// Check returns the sanitized request. An invalid request yields an error
// wrapping apperr.ErrValidation; warnings never block.
func (g *Guard) Check(ctx context.Context, req models.ChatRequest, modelMaxTokens int) (Report, error) {
	original := req.Message
	sanitized, problems := g.validator.Validate(req, modelMaxTokens)

	report := Report{Valid: len(problems) == 0, Request: sanitized, Errors: problems}
	if g.anomaly != nil {
		report.Warnings = g.anomaly.Inspect(req.ClientIP, sanitized.Message)
	}
	if len(report.Warnings) > 0 {
		g.logger.Warn().
			Str("client_ip", req.ClientIP).
			Strs("warnings", report.Warnings).
			Msg("suspicious request")
	}

	entry := Entry{
		Time:        g.now().UTC(),
		ClientIP:    req.ClientIP,
		MessageHash: MessageHash(original),
		Model:       req.Model,
		Passed:      report.Valid,
		Errors:      report.Errors,
		Warnings:    report.Warnings,
	}
	if err := g.audit.Record(ctx, entry); err != nil {
		g.logger.Error().Err(err).Msg("audit record failed")
	}

	if !report.Valid {
		return report, fmt.Errorf("%w: %s", apperr.ErrValidation, strings.Join(problems, "; "))
	}
	return report, nil
}

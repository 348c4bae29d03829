package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/prompt"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/translator"
)

const securityWindow = 24 * time.Hour

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"version":   s.deps.Version,
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) handleDependencies(c echo.Context) error {
	report := s.deps.Health.Run(c.Request().Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, report)
}

func promptBody(in prompt.Instruction, message string) translator.Prompt {
	return translator.Prompt{
		SystemPrompt: in.Text,
		Version:      in.Version,
		UpdatedAt:    in.UpdatedAt.UTC().Format(time.RFC3339),
		IsDefault:    in.IsDefault,
		Message:      message,
	}
}

func (s *Server) handleGetPrompt(c echo.Context) error {
	return c.JSON(http.StatusOK, promptBody(s.deps.Prompts.Current(), ""))
}

func (s *Server) handleUpdatePrompt(c echo.Context) error {
	var req translator.PromptUpdate
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return badRequest("%v", err)
	}

	var (
		in  prompt.Instruction
		err error
	)
	if req.ExpectedVersion != nil {
		in, err = s.deps.Prompts.CompareAndSwap(*req.ExpectedVersion, req.Prompt)
	} else {
		in, err = s.deps.Prompts.Replace(req.Prompt)
	}
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return c.JSON(http.StatusConflict, promptBody(in, err.Error()))
		}
		return toHTTPError(err)
	}

	s.logger.Info().Uint64("version", in.Version).Msg("system prompt updated")
	return c.JSON(http.StatusOK, promptBody(in, "System prompt updated"))
}

func (s *Server) handleResetPrompt(c echo.Context) error {
	in := s.deps.Prompts.Reset()
	s.logger.Info().Uint64("version", in.Version).Msg("system prompt reset")
	return c.JSON(http.StatusOK, promptBody(in, "System prompt reset to default"))
}

func (s *Server) handleModels(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"default": s.cfg.Bedrock.DefaultModel,
		"models":  translator.FromCatalog(s.deps.Models.List()),
	})
}

func (s *Server) handleSecurityStatus(c echo.Context) error {
	stats, err := s.deps.Guard.Audit().Stats(c.Request().Context(), s.now().Add(-securityWindow))
	if err != nil {
		return toHTTPError(err)
	}

	successRate := 100.0
	if stats.Total > 0 {
		successRate = float64(stats.Total-stats.Failed) / float64(stats.Total) * 100
	}

	sec := s.cfg.Security
	return c.JSON(http.StatusOK, map[string]any{
		"status":        "active",
		"last_24_hours": stats,
		"success_rate":  successRate,
		"rate_limiting": map[string]any{
			"enabled":        true,
			"max_requests":   sec.RateLimit.Requests,
			"window_seconds": sec.RateLimit.Window.Seconds(),
		},
		"input_validation": map[string]any{
			"enabled":            true,
			"max_message_length": sec.MaxMessageLength,
			"max_tokens":         sec.MaxTokens,
		},
		"anomaly_detection": map[string]any{
			"enabled":                   true,
			"suspicious_keywords_count": len(sec.SuspiciousKeywords),
		},
	})
}

func (s *Server) handleRateLimitStatus(c echo.Context) error {
	ip := c.Param("ip")
	return c.JSON(http.StatusOK, map[string]any{
		"client_ip":          ip,
		"remaining_requests": s.deps.Limiter.Remaining(ip),
		"max_requests":       s.deps.Limiter.Limit(),
		"window_minutes":     s.cfg.Security.RateLimit.Window.Minutes(),
	})
}

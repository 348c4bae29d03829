package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/security"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/translator"
)

func (s *Server) handleChat(c echo.Context) error {
	var body translator.ChatRequest
	if err := decodeRequestBody(c, &body); err != nil {
		return err
	}

	ctx := c.Request().Context()
	req := body.ToModel(s.cfg.Bedrock.DefaultModel, c.RealIP())

	// An unknown model is reported by the orchestrator, after validation.
	modelMax := 0
	if m, err := s.deps.Models.Resolve(req.Model); err == nil {
		modelMax = m.MaxTokens
	}

	report, err := s.deps.Guard.Check(ctx, req, modelMax)
	if err != nil {
		return toHTTPError(err)
	}

	resp, err := s.deps.Chat.Handle(ctx, report.Request)
	if resp == nil {
		if err == nil {
			err = errors.New("chat handler returned no response")
		}
		return toHTTPError(err)
	}
	resp.Response = security.Redact(resp.Response)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", resp.RequestID).Msg("chat request failed")
		return c.JSON(apperr.Status(err), translator.FromModel(resp))
	}
	return c.JSON(http.StatusOK, translator.FromModel(resp))
}

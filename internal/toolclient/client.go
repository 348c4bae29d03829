// Package toolclient calls the external tool-execution service and flattens
// its content items into a ToolInvocationResult.
package toolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/apperr"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "bedrock-gateway/1.0"
	maxResponseBody = 32 << 20
	maxErrorBody    = 4 << 10
)

var storedObjectURL = regexp.MustCompile(`https://[A-Za-z0-9.\-]*s3[A-Za-z0-9.\-]*\.amazonaws\.com/[^\s"'<>)\]]+`)

// Trailing characters dropped from URLs found in prose.
const urlTrim = ".,;:!?*`'\""

// Invocation names a tool and its input plus optional correlation ids.
type Invocation struct {
	Tool           string
	Input          map[string]any
	ConversationID string
	MessageID      string
}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts tool envelopes to the service endpoint.
type Client struct {
	endpoint  string
	healthURL string
	timeout   time.Duration
	allowed   map[string]struct{}
	http      Doer
	logger    zerolog.Logger
}

// New constructs a client. An empty allowlist permits every tool.
func New(cfg config.ToolsConfig, httpClient Doer, logger zerolog.Logger) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client must not be nil")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("tool endpoint must not be empty")
	}

	allowed := make(map[string]struct{}, len(cfg.Allowed))
	for _, name := range cfg.Allowed {
		allowed[name] = struct{}{}
	}

	return &Client{
		endpoint:  cfg.Endpoint,
		healthURL: cfg.HealthURL,
		timeout:   cfg.Timeout,
		allowed:   allowed,
		http:      httpClient,
		logger:    logger.With().Str("component", "toolclient").Logger(),
	}, nil
}

// Allowed reports whether the tool passes the allowlist.
func (c *Client) Allowed(tool string) bool {
	if len(c.allowed) == 0 {
		return true
	}
	_, ok := c.allowed[tool]
	return ok
}

type envelope struct {
	ToolUse        toolUse `json:"toolUse"`
	ConversationID string  `json:"conversationId"`
	MessageID      string  `json:"messageId"`
}

type toolUse struct {
	ToolUseID string         `json:"toolUseId"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
}

func newEnvelope(inv Invocation) envelope {
	suffix := inv.MessageID
	if suffix == "" {
		suffix = uuid.NewString()[:8]
	}
	conversationID := inv.ConversationID
	if conversationID == "" {
		conversationID = "bedrock-conversation-" + inv.Tool
	}
	messageID := inv.MessageID
	if messageID == "" {
		messageID = "bedrock-message-" + inv.Tool
	}
	input := inv.Input
	if input == nil {
		input = map[string]any{}
	}
	return envelope{
		ToolUse: toolUse{
			ToolUseID: fmt.Sprintf("bedrock-%s-%s", inv.Tool, suffix),
			Name:      inv.Tool,
			Input:     input,
		},
		ConversationID: conversationID,
		MessageID:      messageID,
	}
}

// Call sends one invocation. A non-nil result is returned whenever the
// request reached the network, with Success=false on failure.
func (c *Client) Call(ctx context.Context, inv Invocation) (*models.ToolInvocationResult, error) {
	if !c.Allowed(inv.Tool) {
		return nil, fmt.Errorf("%w: tool %q is not allowed", apperr.ErrValidation, inv.Tool)
	}

	body, err := json.Marshal(newEnvelope(inv))
	if err != nil {
		return nil, fmt.Errorf("marshal tool envelope: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)

	c.logger.Info().Str("tool", inv.Tool).Msg("calling tool")

	resp, err := c.http.Do(req)
	if err != nil {
		msg := fmt.Sprintf("tool %s request failed: %v", inv.Tool, err)
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("tool %s timed out after %s", inv.Tool, c.timeout)
		}
		c.logger.Warn().Err(err).Str("tool", inv.Tool).Msg("tool call failed")
		return &models.ToolInvocationResult{Error: msg}, fmt.Errorf("%w: %s", apperr.ErrUpstream, msg)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		c.logger.Warn().Str("tool", inv.Tool).Int("status", resp.StatusCode).Msg("tool returned error status")
		return &models.ToolInvocationResult{StatusCode: resp.StatusCode, Error: msg},
			fmt.Errorf("%w: tool %s %s", apperr.ErrUpstream, inv.Tool, msg)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		msg := fmt.Sprintf("read tool response: %v", err)
		return &models.ToolInvocationResult{StatusCode: resp.StatusCode, Error: msg}, fmt.Errorf("%w: %s", apperr.ErrUpstream, msg)
	}

	result, err := Parse(raw)
	if err != nil {
		msg := fmt.Sprintf("decode tool response: %v", err)
		return &models.ToolInvocationResult{StatusCode: resp.StatusCode, Error: msg}, fmt.Errorf("%w: %s", apperr.ErrUpstream, msg)
	}
	result.StatusCode = resp.StatusCode

	c.logger.Info().
		Str("tool", inv.Tool).
		Int("fragments", len(result.Fragments)).
		Int("structured_keys", len(result.Structured)).
		Int("file_refs", len(result.FileRefs)).
		Msg("tool call completed")
	return result, nil
}

// Ping checks the service health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if c.healthURL == "" {
		return errors.New("tool health url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("construct request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: tool health: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: tool health status %d", apperr.ErrUpstream, resp.StatusCode)
	}
	return nil
}

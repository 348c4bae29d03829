// Package anthropic encodes Anthropic Messages payloads for Bedrock InvokeModel.
package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

const bedrockVersion = "bedrock-2023-05-31"

// Codec implements provider.Codec for the Anthropic family.
type Codec struct{}

// New constructs an Anthropic codec.
func New() Codec {
	return Codec{}
}

func (Codec) Family() models.ModelFamily {
	return models.FamilyAnthropic
}

type messagePayload struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (Codec) EncodeRequest(req models.InvocationRequest) ([]byte, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, errors.New("anthropic messages must not be empty")
	}
	if req.MaxTokens <= 0 {
		return nil, errors.New("anthropic requests require a positive max_tokens value")
	}

	payload := messagePayload{
		AnthropicVersion: bedrockVersion,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		System:           strings.TrimSpace(req.System),
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: text}},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return body, nil
}

type messageResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	Usage      usageBlock     `json:"usage"`
	StopReason string         `json:"stop_reason"`
	Error      *apiError      `json:"error,omitempty"`
	Message    string         `json:"message,omitempty"`
}

type usageBlock struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (Codec) DecodeResponse(body []byte) (*models.Completion, error) {
	var resp messageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return nil, fmt.Errorf("anthropic error (%s): %s", resp.Error.Type, resp.Error.Message)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		text.WriteString(block.Text)
	}
	if text.Len() == 0 {
		return nil, errors.New("anthropic response missing text content")
	}

	return &models.Completion{
		Text:         text.String(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		StopReason:   resp.StopReason,
	}, nil
}

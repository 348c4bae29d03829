// Package nova encodes Amazon Nova converse-style payloads for Bedrock InvokeModel.
package nova

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

// Codec implements provider.Codec for the Nova family.
type Codec struct{}

// New constructs a Nova codec.
func New() Codec {
	return Codec{}
}

func (Codec) Family() models.ModelFamily {
	return models.FamilyNova
}

type chatPayload struct {
	Messages        []novaMessage   `json:"messages"`
	InferenceConfig inferenceConfig `json:"inferenceConfig"`
}

type novaMessage struct {
	Role    string      `json:"role"`
	Content []textBlock `json:"content"`
}

type textBlock struct {
	Text string `json:"text"`
}

type inferenceConfig struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// Prompt flattens the system instruction and user message into Nova's single user turn.
func Prompt(system, message string) string {
	system = strings.TrimSpace(system)
	if system == "" {
		return "Usuario: " + message
	}
	return system + "\n\nUsuario: " + message
}

func (Codec) EncodeRequest(req models.InvocationRequest) ([]byte, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, errors.New("nova messages must not be empty")
	}
	if req.MaxTokens <= 0 {
		return nil, errors.New("nova requests require a positive max_tokens value")
	}

	payload := chatPayload{
		Messages: []novaMessage{{
			Role:    "user",
			Content: []textBlock{{Text: Prompt(req.System, text)}},
		}},
		InferenceConfig: inferenceConfig{
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return body, nil
}

type chatResponse struct {
	Output struct {
		Message novaMessage `json:"message"`
	} `json:"output"`
	Usage      usageBlock `json:"usage"`
	StopReason string     `json:"stopReason"`
	Message    string     `json:"message,omitempty"`
}

type usageBlock struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

func (Codec) DecodeResponse(body []byte) (*models.Completion, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode nova response: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Output.Message.Content {
		text.WriteString(block.Text)
	}
	if text.Len() == 0 {
		if resp.Message != "" {
			return nil, fmt.Errorf("nova error: %s", resp.Message)
		}
		return nil, errors.New("nova response missing output text")
	}

	return &models.Completion{
		Text:         text.String(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		StopReason:   resp.StopReason,
	}, nil
}

// Package translator maps the gateway's JSON wire format to and from the
// canonical request and response models.
package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1500
)

var errMissingMessage = errors.New("message is required")

// ChatRequest models the POST /chat payload.
type ChatRequest struct {
	Message              string
	Model                string
	Temperature          *float64
	MaxTokens            *int
	UseTools             *bool
	GenerateDeliverables *bool
	SystemPrompt         string
}

// UnmarshalJSON accepts both use_tools and the legacy use_mcp flag.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Message              *string  `json:"message"`
		Model                string   `json:"model"`
		Temperature          *float64 `json:"temperature"`
		MaxTokens            *int     `json:"max_tokens"`
		UseTools             *bool    `json:"use_tools"`
		UseMCP               *bool    `json:"use_mcp"`
		GenerateDeliverables *bool    `json:"generate_deliverables"`
		SystemPrompt         string   `json:"system_prompt"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode chat request: %w", err)
	}
	if raw.Message == nil {
		return errMissingMessage
	}

	r.Message = *raw.Message
	r.Model = strings.TrimSpace(raw.Model)
	r.Temperature = raw.Temperature
	r.MaxTokens = raw.MaxTokens
	r.UseTools = raw.UseTools
	if r.UseTools == nil {
		r.UseTools = raw.UseMCP
	}
	r.GenerateDeliverables = raw.GenerateDeliverables
	r.SystemPrompt = raw.SystemPrompt
	return nil
}

// ToModel fills the wire defaults and returns the canonical request.
func (r ChatRequest) ToModel(defaultModel, clientIP string) models.ChatRequest {
	req := models.ChatRequest{
		Message:              r.Message,
		Model:                r.Model,
		Temperature:          DefaultTemperature,
		MaxTokens:            DefaultMaxTokens,
		UseTools:             r.UseTools,
		GenerateDeliverables: r.GenerateDeliverables,
		SystemInstruction:    r.SystemPrompt,
		ClientIP:             clientIP,
	}
	if req.Model == "" {
		req.Model = defaultModel
	}
	if r.Temperature != nil {
		req.Temperature = *r.Temperature
	}
	if r.MaxTokens != nil {
		req.MaxTokens = *r.MaxTokens
	}
	return req
}

// ProcessingStep is the wire form of one trace entry.
type ProcessingStep struct {
	Step      string  `json:"step"`
	Status    string  `json:"status"`
	StartedAt string  `json:"started_at"`
	Duration  float64 `json:"duration"`
	Details   string  `json:"details,omitempty"`
	Tool      string  `json:"tool,omitempty"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Artifact describes a generated file without its payload.
type Artifact struct {
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Source      string `json:"source,omitempty"`
	Key         string `json:"key,omitempty"`
	URL         string `json:"url,omitempty"`
	ExpiringURL string `json:"expiring_url,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// ChatResponse is the /chat response body.
type ChatResponse struct {
	Response            string           `json:"response"`
	ModelUsed           string           `json:"model_used"`
	ProcessingSteps     []ProcessingStep `json:"processing_steps"`
	ToolsUsed           []string         `json:"tools_used"`
	S3Files             []string         `json:"s3_files"`
	Artifacts           []Artifact       `json:"artifacts"`
	RequestID           string           `json:"request_id"`
	Timestamp           string           `json:"timestamp"`
	TotalProcessingTime float64          `json:"total_processing_time"`
	TokenCount          int              `json:"token_count"`
	CostEstimate        float64          `json:"cost_estimate"`
	SystemPromptUsed    bool             `json:"system_prompt_used"`
	MCPUsed             bool             `json:"mcp_used"`
	ConversationStage   string           `json:"conversation_stage,omitempty"`
	Error               string           `json:"error,omitempty"`
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// FromModel renders resp for the wire. Durations are reported in seconds.
func FromModel(resp *models.ChatResponse) ChatResponse {
	out := ChatResponse{
		Response:            resp.Response,
		ModelUsed:           resp.ModelUsed,
		ProcessingSteps:     make([]ProcessingStep, 0, len(resp.Steps)),
		ToolsUsed:           nonNil(resp.ToolsUsed),
		S3Files:             nonNil(resp.FileRefs),
		Artifacts:           make([]Artifact, 0, len(resp.Artifacts)),
		RequestID:           resp.RequestID,
		Timestamp:           resp.Timestamp.UTC().Format(timeLayout),
		TotalProcessingTime: resp.TotalDuration.Seconds(),
		TokenCount:          resp.TokenCount,
		CostEstimate:        resp.CostEstimate,
		SystemPromptUsed:    resp.SystemPromptUsed,
		MCPUsed:             resp.ToolPathUsed,
		ConversationStage:   resp.ConversationStage,
		Error:               resp.Error,
	}

	for _, s := range resp.Steps {
		out.ProcessingSteps = append(out.ProcessingSteps, ProcessingStep{
			Step:      s.Name,
			Status:    string(s.Status),
			StartedAt: s.StartedAt.UTC().Format(timeLayout),
			Duration:  s.Duration.Seconds(),
			Details:   s.Detail,
			Tool:      s.Tool,
			Reasoning: s.Reasoning,
		})
	}
	for _, a := range resp.Artifacts {
		out.Artifacts = append(out.Artifacts, Artifact{
			Filename:    a.Filename,
			Type:        string(a.Type),
			ContentType: a.ContentType,
			Size:        a.Size,
			Source:      a.Source,
			Key:         a.Key,
			URL:         a.URL,
			ExpiringURL: a.ExpiringURL,
			Available:   a.Available(),
			Error:       a.Error,
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

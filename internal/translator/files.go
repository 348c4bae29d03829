package translator

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

var (
	errMissingContent  = errors.New("content is required")
	errMissingData     = errors.New("data is required")
	errUnknownEncoding = errors.New("unsupported encoding")
	errMissingPrompt   = errors.New("prompt is required")
)

var uploadExtensions = map[string]string{
	"diagram":  ".png",
	"document": ".md",
	"json":     ".json",
	"text":     ".txt",
	"html":     ".html",
}

// UploadRequest is the POST /upload-file payload.
type UploadRequest struct {
	Content  string `json:"content"`
	FileType string `json:"file_type"`
	Filename string `json:"filename"`
	Encoding string `json:"encoding"`
}

// Normalize defaults the file type and checks the content is present.
func (r *UploadRequest) Normalize() error {
	r.FileType = strings.ToLower(strings.TrimSpace(r.FileType))
	if r.FileType == "" {
		r.FileType = "text"
	}
	r.Filename = strings.TrimSpace(r.Filename)
	if r.Content == "" {
		return errMissingContent
	}
	return nil
}

// Data returns the raw bytes, decoding base64 when requested.
func (r UploadRequest) Data() ([]byte, error) {
	switch strings.ToLower(r.Encoding) {
	case "", "utf-8", "utf8", "text":
		return []byte(r.Content), nil
	case "base64":
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(r.Content))
		if err != nil {
			return nil, fmt.Errorf("decode base64 content: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w %q", errUnknownEncoding, r.Encoding)
	}
}

// Name returns the filename to store under. Without one it is
// {file_type}_{YYYYmmdd_HHMMSS}_{suffix}; the type's extension is appended
// when the name carries none of the upload extensions.
func (r UploadRequest) Name(now time.Time, suffix string) string {
	name := r.Filename
	if name == "" {
		name = fmt.Sprintf("%s_%s_%s", r.FileType, now.Format("20060102_150405"), suffix)
	}
	ext := models.Ext(name)
	for _, known := range uploadExtensions {
		if ext == known {
			return name
		}
	}
	if e, ok := uploadExtensions[r.FileType]; ok {
		return name + e
	}
	return name + ".txt"
}

// UploadJSONRequest is the POST /upload-json payload.
type UploadJSONRequest struct {
	Data     json.RawMessage `json:"data"`
	Filename string          `json:"filename"`
}

// Upload converts the request into a json upload with indented content.
func (r UploadJSONRequest) Upload() (UploadRequest, error) {
	trimmed := bytes.TrimSpace(r.Data)
	switch string(trimmed) {
	case "", "null", "{}", "[]", `""`:
		return UploadRequest{}, errMissingData
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return UploadRequest{}, fmt.Errorf("format json data: %w", err)
	}
	return UploadRequest{Content: buf.String(), FileType: "json", Filename: strings.TrimSpace(r.Filename)}, nil
}

// UploadResponse reports where an upload landed.
type UploadResponse struct {
	Success     bool   `json:"success"`
	S3URL       string `json:"s3_url"`
	ExpiringURL string `json:"expiring_url,omitempty"`
	Key         string `json:"key"`
	Size        int    `json:"size"`
	Message     string `json:"message"`
}

// PromptUpdate is the POST /system-prompt payload. ExpectedVersion, when set,
// makes the update conditional on the current version.
type PromptUpdate struct {
	Prompt          string  `json:"prompt"`
	ExpectedVersion *uint64 `json:"expected_version"`
}

// Validate rejects blank prompts.
func (p PromptUpdate) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return errMissingPrompt
	}
	return nil
}

// Prompt is the wire form of the current system instruction.
type Prompt struct {
	SystemPrompt string `json:"system_prompt"`
	Version      uint64 `json:"version"`
	UpdatedAt    string `json:"updated_at"`
	IsDefault    bool   `json:"is_default"`
	Message      string `json:"message,omitempty"`
}

// ModelInfo is one catalog entry as listed by GET /models.
type ModelInfo struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Provider             string  `json:"provider"`
	Family               string  `json:"family"`
	Type                 string  `json:"type"`
	MaxTokens            int     `json:"max_tokens"`
	InputCostPer1K       float64 `json:"input_cost_per_1k"`
	OutputCostPer1K      float64 `json:"output_cost_per_1k"`
	SupportsSystemPrompt bool    `json:"supports_system_prompt"`
}

// FromCatalog renders the model catalog.
func FromCatalog(list []models.Model) []ModelInfo {
	out := make([]ModelInfo, 0, len(list))
	for _, m := range list {
		out = append(out, ModelInfo{
			ID:                   m.ID,
			Name:                 m.Name,
			Provider:             m.Provider,
			Family:               string(m.Family),
			Type:                 "text",
			MaxTokens:            m.MaxTokens,
			InputCostPer1K:       m.Price.InputPer1K,
			OutputCostPer1K:      m.Price.OutputPer1K,
			SupportsSystemPrompt: m.SupportsSystem,
		})
	}
	return out
}

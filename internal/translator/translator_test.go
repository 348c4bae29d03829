package translator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

const defaultModel = "anthropic.claude-3-5-sonnet-20240620-v1:0"

func TestChatRequestDefaults(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"message":"hola"}`), &req))

	got := req.ToModel(defaultModel, "10.0.0.1")
	assert.Equal(t, "hola", got.Message)
	assert.Equal(t, defaultModel, got.Model)
	assert.Equal(t, DefaultTemperature, got.Temperature)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Nil(t, got.UseTools)
	assert.Nil(t, got.GenerateDeliverables)
	assert.Equal(t, "10.0.0.1", got.ClientIP)
}

func TestChatRequestExplicitValues(t *testing.T) {
	var req ChatRequest
	body := `{"message":"m","model":" amazon.nova-pro-v1:0 ","temperature":0,"max_tokens":10,
		"use_mcp":false,"generate_deliverables":true,"system_prompt":"be brief"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	got := req.ToModel(defaultModel, "")
	assert.Equal(t, "amazon.nova-pro-v1:0", got.Model)
	assert.Equal(t, 0.0, got.Temperature)
	assert.Equal(t, 10, got.MaxTokens)
	require.NotNil(t, got.UseTools)
	assert.False(t, *got.UseTools)
	require.NotNil(t, got.GenerateDeliverables)
	assert.True(t, *got.GenerateDeliverables)
	assert.Equal(t, "be brief", got.SystemInstruction)
}

func TestChatRequestUseToolsWinsOverLegacyFlag(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"message":"m","use_tools":true,"use_mcp":false}`), &req))
	require.NotNil(t, req.UseTools)
	assert.True(t, *req.UseTools)
}

func TestChatRequestRequiresMessage(t *testing.T) {
	var req ChatRequest
	err := json.Unmarshal([]byte(`{"model":"x"}`), &req)
	assert.ErrorIs(t, err, errMissingMessage)

	err = json.Unmarshal([]byte(`{"message":5}`), &req)
	assert.Error(t, err)
}

func TestFromModel(t *testing.T) {
	started := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	resp := &models.ChatResponse{
		Response:  "ok",
		ModelUsed: defaultModel,
		Steps: []models.ProcessingStep{
			{Name: "intent_analysis", Status: models.StepCompleted, StartedAt: started, Duration: 1500 * time.Millisecond, Reasoning: "general query"},
		},
		Artifacts: []models.FileArtifact{
			{Filename: "a.png", Type: models.ArtifactImage, ContentType: "image/png", Data: []byte("png"), Size: 3, URL: "https://b.s3.us-east-1.amazonaws.com/a.png"},
			{Filename: "b.pdf", Type: models.ArtifactDocument, Error: "storage error"},
		},
		FileRefs:      []string{"https://b.s3.us-east-1.amazonaws.com/a.png"},
		RequestID:     "req-1",
		Timestamp:     started,
		TotalDuration: 2 * time.Second,
		ToolPathUsed:  true,
	}

	out := FromModel(resp)
	assert.Equal(t, "2026-03-10T12:00:00.000Z", out.Timestamp)
	assert.Equal(t, 2.0, out.TotalProcessingTime)
	require.Len(t, out.ProcessingSteps, 1)
	assert.Equal(t, 1.5, out.ProcessingSteps[0].Duration)
	assert.Equal(t, "completed", out.ProcessingSteps[0].Status)
	assert.True(t, out.MCPUsed)
	assert.Equal(t, []string{}, out.ToolsUsed)
	require.Len(t, out.Artifacts, 2)
	assert.True(t, out.Artifacts[0].Available)
	assert.False(t, out.Artifacts[1].Available)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"data"`)
	assert.Contains(t, string(data), `"s3_files":["https://b.s3.us-east-1.amazonaws.com/a.png"]`)
}

func TestUploadName(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 8, 7, 0, time.UTC)
	tests := []struct {
		name string
		req  UploadRequest
		want string
	}{
		{"generated", UploadRequest{FileType: "diagram"}, "diagram_20260310_090807_abcd1234.png"},
		{"kept extension", UploadRequest{FileType: "document", Filename: "notes.md"}, "notes.md"},
		{"appended extension", UploadRequest{FileType: "html", Filename: "page"}, "page.html"},
		{"unknown type", UploadRequest{FileType: "blob", Filename: "x"}, "x.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Name(now, "abcd1234"))
		})
	}
}

func TestUploadData(t *testing.T) {
	req := UploadRequest{Content: "aGVsbG8=", Encoding: "base64"}
	data, err := req.Data()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = UploadRequest{Content: "!!", Encoding: "base64"}.Data()
	assert.Error(t, err)

	_, err = UploadRequest{Content: "x", Encoding: "rot13"}.Data()
	assert.ErrorIs(t, err, errUnknownEncoding)

	empty := UploadRequest{}
	assert.ErrorIs(t, empty.Normalize(), errMissingContent)
	assert.Equal(t, "text", empty.FileType)
}

func TestUploadJSON(t *testing.T) {
	up, err := UploadJSONRequest{Data: json.RawMessage(`{"a":1}`), Filename: "cfg"}.Upload()
	require.NoError(t, err)
	assert.Equal(t, "json", up.FileType)
	assert.Equal(t, "{\n  \"a\": 1\n}", up.Content)

	_, err = UploadJSONRequest{Data: json.RawMessage(`{}`)}.Upload()
	assert.ErrorIs(t, err, errMissingData)
}

func TestPromptUpdateValidate(t *testing.T) {
	assert.ErrorIs(t, PromptUpdate{Prompt: "  "}.Validate(), errMissingPrompt)
	assert.NoError(t, PromptUpdate{Prompt: "x"}.Validate())
}

package models

import "time"

// ModelFamily enumerates the Bedrock payload contracts the gateway can speak.
type ModelFamily string

const (
	FamilyUnknown   ModelFamily = ""
	FamilyAnthropic ModelFamily = "anthropic"
	FamilyNova      ModelFamily = "nova"
)

// Valid reports whether the family is one of the supported contracts.
func (f ModelFamily) Valid() bool {
	return f == FamilyAnthropic || f == FamilyNova
}

// Price is a per-1000-token rate pair.
type Price struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Cost computes the estimated spend for a completion.
func (p Price) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*p.InputPer1K + float64(outputTokens)*p.OutputPer1K) / 1000
}

// Model identifies a resolved model with its family contract and catalog metadata.
type Model struct {
	ID             string
	Name           string
	Provider       string
	Family         ModelFamily
	MaxTokens      int
	Price          Price
	Catalogued     bool
	SupportsSystem bool
}

// ShortName returns the trailing segment of a dotted Bedrock model id.
func (m Model) ShortName() string {
	for i := len(m.ID) - 1; i >= 0; i-- {
		if m.ID[i] == '.' {
			return m.ID[i+1:]
		}
	}
	return m.ID
}

// ChatRequest is the validated, immutable representation of one /chat call.
type ChatRequest struct {
	Message              string
	Model                string
	Temperature          float64
	MaxTokens            int
	UseTools             *bool
	GenerateDeliverables *bool
	SystemInstruction    string
	ClientIP             string
}

// InvocationRequest is what the model invoker needs to call Bedrock.
type InvocationRequest struct {
	Model       Model
	Message     string
	System      string
	Temperature float64
	MaxTokens   int
}

// Completion captures the text and accounting of a model response.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
	StopReason   string
	Latency      time.Duration
}

// TotalTokens sums input and output usage.
func (c Completion) TotalTokens() int {
	return c.InputTokens + c.OutputTokens
}

// ToolInvocationResult is the flat view of a tool service response.
type ToolInvocationResult struct {
	Success    bool
	StatusCode int
	Fragments  []string
	RawText    string
	Structured map[string]any
	FileRefs   []string
	Error      string
}

// ChatResponse is built once per request and returned verbatim.
type ChatResponse struct {
	Response          string
	ModelUsed         string
	Steps             []ProcessingStep
	ToolsUsed         []string
	Artifacts         []FileArtifact
	FileRefs          []string
	RequestID         string
	Timestamp         time.Time
	TotalDuration     time.Duration
	TokenCount        int
	CostEstimate      float64
	SystemPromptUsed  bool
	ToolPathUsed      bool
	ConversationStage string
	Error             string
}

// URLs returns the retrieval URL of every stored artifact, preferring expiring URLs.
func (r *ChatResponse) URLs() []string {
	urls := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		switch {
		case a.ExpiringURL != "":
			urls = append(urls, a.ExpiringURL)
		case a.URL != "":
			urls = append(urls, a.URL)
		}
	}
	return urls
}

// Package orchestrator runs one chat request through classification, the
// tool service or the model, file extraction and artifact storage.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/cache"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/extractor"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/intent"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/logging"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/metrics"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/prompt"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/provider"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/storage"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/toolclient"
)

// Step names.
const (
	StepIntent     = "intent_analysis"
	StepTool       = "tool_processing"
	StepModel      = "model_processing"
	StepExtraction = "file_extraction"
)

// Conversation stages.
const (
	StageDeliverables = "deliverable_generation"
	StageDirect       = "direct_response"
	StageFallback     = "fallback_response"
)

const (
	toolContext    = "AWS Solutions Architect - Generate comprehensive deliverables including diagrams and detailed cost estimates"
	toolTokenRatio = 1.3
	uploadTimeout  = time.Minute
	extractTimeout = time.Minute
)

// ModelResolver maps a requested model id to a catalog entry.
type ModelResolver interface {
	Resolve(modelID string) (models.Model, error)
}

// Classifier picks the processing path.
type Classifier interface {
	Classify(message string, o intent.Overrides) intent.Decision
}

// ToolCaller invokes the tool service.
type ToolCaller interface {
	Call(ctx context.Context, inv toolclient.Invocation) (*models.ToolInvocationResult, error)
}

// FileExtractor finds files in a tool result.
type FileExtractor interface {
	Extract(ctx context.Context, result *models.ToolInvocationResult, tool string) (*extractor.Extraction, error)
}

// ArtifactStore uploads extracted files.
type ArtifactStore interface {
	Put(ctx context.Context, obj storage.Object) (*storage.Stored, error)
}

// Instructions supplies the shared system instruction.
type Instructions interface {
	Current() prompt.Instruction
}

// Deps are the collaborators of an Orchestrator. Cache is optional.
type Deps struct {
	Models     ModelResolver
	Classifier Classifier
	Invoker    provider.Invoker
	Tools      ToolCaller
	Extractor  FileExtractor
	Store      ArtifactStore
	Prompts    Instructions
	Cache      cache.Cache
}

// Orchestrator handles chat requests. It is safe for concurrent use.
type Orchestrator struct {
	deps Deps

	tool             string
	toolTimeout      time.Duration
	modelTimeout     time.Duration
	minUsefulChars   int
	toolCallCost     float64
	artifactCategory string
	cacheTTL         time.Duration

	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

// New wires an orchestrator from configuration and collaborators.
func New(cfg config.Config, deps Deps, logger zerolog.Logger) (*Orchestrator, error) {
	switch {
	case deps.Models == nil:
		return nil, errors.New("model resolver must not be nil")
	case deps.Classifier == nil:
		return nil, errors.New("classifier must not be nil")
	case deps.Invoker == nil:
		return nil, errors.New("model invoker must not be nil")
	case deps.Tools == nil:
		return nil, errors.New("tool client must not be nil")
	case deps.Extractor == nil:
		return nil, errors.New("extractor must not be nil")
	case deps.Store == nil:
		return nil, errors.New("artifact store must not be nil")
	case deps.Prompts == nil:
		return nil, errors.New("prompt store must not be nil")
	}

	return &Orchestrator{
		deps:             deps,
		tool:             cfg.Tools.DefaultTool,
		toolTimeout:      cfg.Tools.Timeout,
		modelTimeout:     cfg.Bedrock.Timeout,
		minUsefulChars:   cfg.Tools.MinUsefulChars,
		toolCallCost:     cfg.Tools.ToolCallCost,
		artifactCategory: cfg.Storage.ArtifactCategory,
		cacheTTL:         cfg.Cache.TTL,
		logger:           logger.With().Str("component", "orchestrator").Logger(),
		now:              time.Now,
		newID:            uuid.NewString,
	}, nil
}

// request carries per-request state through the pipeline.
type request struct {
	models.ChatRequest
	id       string
	model    models.Model
	system   string
	decision intent.Decision
	trace    *models.Trace
	resp     *models.ChatResponse
	logger   zerolog.Logger
}

// Handle processes req. The returned response is never nil; on error it
// carries the trace so far and the error text.
func (o *Orchestrator) Handle(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	start := o.now()
	id := o.newID()
	r := &request{
		ChatRequest: req,
		id:          id,
		trace:       models.NewTrace(o.now),
		resp:        &models.ChatResponse{RequestID: id, Timestamp: start.UTC(), ModelUsed: req.Model},
		logger:      o.logger.With().Str("request_id", id).Logger(),
	}
	defer func() {
		r.resp.Steps = r.trace.Steps()
		r.resp.TotalDuration = o.now().Sub(start)
	}()

	r.logger.Info().Str("message", logging.Preview(req.Message)).Str("model", req.Model).Msg("chat request")

	if err := o.analyze(r); err != nil {
		return o.fail(r, err)
	}

	fallback := false
	if r.decision.UseToolPath {
		metrics.ChatPath.WithLabelValues("tool").Inc()
		if o.toolPath(ctx, r) {
			o.logDone(r, start)
			return r.resp, nil
		}
		fallback = true
		metrics.Fallbacks.Inc()
	} else {
		metrics.ChatPath.WithLabelValues("model").Inc()
	}

	if err := o.modelPath(ctx, r, fallback); err != nil {
		return o.fail(r, err)
	}
	r.trace.Start(StepExtraction, "").Complete("skipped: direct model response")
	o.logDone(r, start)
	return r.resp, nil
}

func (o *Orchestrator) analyze(r *request) error {
	step := r.trace.Start(StepIntent, "resolving model and classifying message")

	model, err := o.deps.Models.Resolve(r.Model)
	if err != nil {
		step.Fail(err.Error())
		return err
	}
	r.model = model
	r.resp.ModelUsed = model.ID

	r.decision = o.deps.Classifier.Classify(r.Message, intent.Overrides{
		UseTools:             r.UseTools,
		GenerateDeliverables: r.GenerateDeliverables,
	})

	r.system = r.SystemInstruction
	if r.system == "" {
		r.system = o.deps.Prompts.Current().Text
	}

	path := "model"
	if r.decision.UseToolPath {
		path = "tool"
	}
	step.Annotate("", r.decision.Reason)
	detail := fmt.Sprintf("path: %s (%s) | deliverables: %t", path, r.decision.Reason, r.decision.WantDeliverables)
	if r.decision.DeliverableReason != "" {
		detail += " (" + r.decision.DeliverableReason + ")"
	}
	step.Complete(detail)
	return nil
}

// toolPath reports whether the tool service produced the final answer.
func (o *Orchestrator) toolPath(ctx context.Context, r *request) bool {
	step := r.trace.Start(StepTool, "calling "+o.tool)
	step.Annotate(o.tool, r.decision.Reason)

	project := "chat-" + shortID(r.id)
	tctx, cancel := logging.DetachWithTimeout(ctx, o.toolTimeout)
	started := time.Now()
	result, err := o.deps.Tools.Call(tctx, toolclient.Invocation{
		Tool: o.tool,
		Input: map[string]any{
			"query":                 r.Message,
			"context":               toolContext,
			"project_name":          project,
			"generate_deliverables": r.decision.WantDeliverables,
		},
		MessageID: r.id,
	})
	cancel()
	observe("tools", started, err)

	if err != nil {
		step.Fail("tool call failed: " + err.Error())
		r.logger.Warn().Err(err).Str("tool", o.tool).Msg("tool call failed, falling back to model")
		return false
	}

	ectx, cancel := logging.DetachWithTimeout(ctx, extractTimeout)
	ex, exErr := o.deps.Extractor.Extract(ectx, result, o.tool)
	cancel()
	if ex == nil {
		ex = &extractor.Extraction{}
	}

	if !toolclient.Useful(result, o.minUsefulChars) && !ex.HasFiles() {
		step.Fail(fmt.Sprintf("tool returned no useful content (%d chars, no decodable files), falling back to model",
			len([]rune(toolclient.Substantive(result)))))
		r.logger.Info().Str("tool", o.tool).Msg("tool output not useful, falling back to model")
		return false
	}
	step.Complete(fmt.Sprintf("%s returned %d fragments, %d file references", o.tool, len(result.Fragments), len(result.FileRefs)))

	o.storeArtifacts(ctx, r, result, ex, exErr, project)

	resp := r.resp
	resp.ToolsUsed = []string{"mcp", o.tool}
	resp.TokenCount = int(float64(len(strings.Fields(resp.Response))) * toolTokenRatio)
	resp.CostEstimate = o.toolCallCost
	resp.SystemPromptUsed = false
	resp.ToolPathUsed = true
	resp.ConversationStage = StageDeliverables
	return true
}

// storeArtifacts uploads the extracted candidates and fills the tool-path response.
func (o *Orchestrator) storeArtifacts(ctx context.Context, r *request, result *models.ToolInvocationResult, ex *extractor.Extraction, err error, project string) {
	step := r.trace.Start(StepExtraction, "storing files found in tool output")

	r.resp.Response = ex.Text
	if r.resp.Response == "" {
		r.resp.Response = toolclient.Substantive(result)
	}

	stored, failed := 0, 0
	artifacts := make([]models.FileArtifact, 0, len(ex.Candidates))
	for _, a := range ex.Candidates {
		a = o.upload(ctx, r, a, project)
		if a.Available() {
			stored++
		} else {
			failed++
		}
		artifacts = append(artifacts, a)
	}
	r.resp.Artifacts = artifacts
	r.resp.FileRefs = mergeRefs(result.FileRefs, r.resp.URLs())

	detail := fmt.Sprintf("%d candidates, %d stored, %d failed, %d unresolved", len(ex.Candidates), stored, failed, len(ex.Dropped))
	if err != nil {
		r.logger.Warn().Err(err).Msg("file extraction interrupted")
		step.Fail(detail + ": " + err.Error())
		return
	}
	step.Complete(detail)
}

func (o *Orchestrator) upload(ctx context.Context, r *request, a models.FileArtifact, project string) models.FileArtifact {
	uctx, cancel := logging.DetachWithTimeout(ctx, uploadTimeout)
	defer cancel()

	started := time.Now()
	stored, err := o.deps.Store.Put(uctx, storage.Object{
		Data:        a.Data,
		ContentType: a.ContentType,
		Category:    o.artifactCategory,
		Project:     project,
		Tool:        o.tool,
		Filename:    a.Filename,
	})
	observe("storage", started, err)
	if err != nil {
		metrics.Artifacts.WithLabelValues(metrics.OutcomeError).Inc()
		r.logger.Warn().Err(err).Str("filename", a.Filename).Msg("artifact upload failed")
		a.Error = err.Error()
		return a
	}
	metrics.Artifacts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	a.Key = stored.Key
	a.URL = stored.URL
	a.ExpiringURL = stored.ExpiringURL
	a.Size = stored.Size
	a.ContentType = stored.ContentType
	return a
}

// cachedCompletion is the cached form of a model answer.
type cachedCompletion struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

func (o *Orchestrator) modelPath(ctx context.Context, r *request, fallback bool) error {
	step := r.trace.Start(StepModel, "invoking "+r.model.ID)
	reason := r.decision.Reason
	if fallback {
		reason = "fallback after tool path"
	}
	step.Annotate(r.model.ShortName(), reason)

	key := cache.Key(r.model.ID, r.Temperature, r.MaxTokens, r.system, r.Message)
	completion, hit := o.cached(ctx, r, key)
	if !hit {
		mctx, cancel := logging.DetachWithTimeout(ctx, o.modelTimeout)
		started := time.Now()
		c, err := o.deps.Invoker.Invoke(mctx, models.InvocationRequest{
			Model:       r.model,
			Message:     r.Message,
			System:      r.system,
			Temperature: r.Temperature,
			MaxTokens:   r.MaxTokens,
		})
		cancel()
		observe("bedrock", started, err)
		if err != nil {
			step.Fail(err.Error())
			return err
		}
		completion = cachedCompletion{Text: c.Text, InputTokens: c.InputTokens, OutputTokens: c.OutputTokens}
		o.store(ctx, r, key, completion)
	}

	detail := fmt.Sprintf("%s: %d input + %d output tokens", r.model.ShortName(), completion.InputTokens, completion.OutputTokens)
	if hit {
		detail += " (cache hit)"
	}
	step.Complete(detail)

	resp := r.resp
	resp.Response = completion.Text
	resp.ToolsUsed = []string{"bedrock", r.model.ShortName()}
	resp.TokenCount = completion.InputTokens + completion.OutputTokens
	resp.CostEstimate = r.model.Price.Cost(completion.InputTokens, completion.OutputTokens)
	resp.SystemPromptUsed = r.system != ""
	resp.ToolPathUsed = false
	resp.ConversationStage = StageDirect
	if fallback {
		resp.ConversationStage = StageFallback
	}
	return nil
}

func (o *Orchestrator) cached(ctx context.Context, r *request, key string) (cachedCompletion, bool) {
	if o.deps.Cache == nil {
		return cachedCompletion{}, false
	}
	v, ok, err := o.deps.Cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn().Err(err).Msg("cache lookup failed")
		metrics.CacheLookups.WithLabelValues(metrics.OutcomeError).Inc()
		return cachedCompletion{}, false
	}
	var c cachedCompletion
	if !ok || json.Unmarshal([]byte(v), &c) != nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return cachedCompletion{}, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return c, true
}

func (o *Orchestrator) store(ctx context.Context, r *request, key string, c cachedCompletion) {
	if o.deps.Cache == nil {
		return
	}
	b, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := o.deps.Cache.Set(ctx, key, string(b), o.cacheTTL); err != nil {
		r.logger.Warn().Err(err).Msg("cache store failed")
	}
}

func (o *Orchestrator) fail(r *request, err error) (*models.ChatResponse, error) {
	r.resp.Error = err.Error()
	r.logger.Error().Err(err).Msg("chat request failed")
	return r.resp, err
}

func (o *Orchestrator) logDone(r *request, start time.Time) {
	r.logger.Info().
		Str("stage", r.resp.ConversationStage).
		Strs("tools", r.resp.ToolsUsed).
		Int("artifacts", len(r.resp.Artifacts)).
		Dur("duration", o.now().Sub(start)).
		Msg("chat request completed")
}

func observe(target string, started time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.UpstreamLatency.WithLabelValues(target, outcome).Observe(time.Since(started).Seconds())
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func mergeRefs(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range lists {
		for _, ref := range list {
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

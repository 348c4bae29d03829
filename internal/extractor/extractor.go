// Package extractor finds files in tool results: inline payload fields, large
// JSON documents, encoded blobs embedded in text and references to files the
// tool wrote elsewhere.
package extractor

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/toolclient"
)

// Extraction is the outcome of scanning one tool result.
type Extraction struct {
	Candidates []models.FileArtifact
	// Text is the substantive tool text with extracted payloads replaced by placeholders.
	Text string
	// Dropped lists references that no resolver could fetch.
	Dropped []string
}

// Extractor scans tool results for files.
type Extractor struct {
	largeJSONBytes int
	resolver       Resolver
	logger         zerolog.Logger
	suffix         func(n int) string
}

// New builds an extractor. A nil resolver disables reference resolution.
func New(cfg config.ExtractionConfig, resolver Resolver, logger zerolog.Logger) *Extractor {
	return &Extractor{
		largeJSONBytes: cfg.LargeJSONBytes,
		resolver:       resolver,
		logger:         logger.With().Str("component", "extractor").Logger(),
		suffix:         randomHex,
	}
}

// NewResolver assembles the default chain: local roots, direct download,
// then the tool service's companion file endpoint.
func NewResolver(cfg config.ExtractionConfig, filesBaseURL string, client Doer) Chain {
	fetcher := HTTPFetcher{Client: client, MaxBytes: cfg.MaxFileBytes}
	return Chain{
		LocalFiles{Roots: cfg.LocalRoots, MaxBytes: cfg.MaxFileBytes},
		fetcher,
		Companion{BaseURL: filesBaseURL, Fetcher: fetcher},
	}
}

func randomHex(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// Extract returns the file candidates found in result, in the order
// structured fields, large JSON, text patterns, references, with duplicate
// filenames removed.
func (e *Extractor) Extract(ctx context.Context, result *models.ToolInvocationResult, tool string) (*Extraction, error) {
	out := &Extraction{}
	if result == nil {
		return out, nil
	}

	text := toolclient.Substantive(result)

	structured, pathRef := e.fromStructured(result.Structured, tool)
	jsonDocs, text := e.largeJSON(text, result.Structured, tool)
	patterns, text := e.patterns(text, tool)
	out.Text = strings.TrimSpace(text)

	refs := findReferences(text)
	if pathRef != "" {
		refs = append([]string{pathRef}, refs...)
	}
	resolved, dropped, err := e.resolve(ctx, refs, result.FileRefs)
	out.Dropped = dropped

	for _, group := range [][]models.FileArtifact{structured, jsonDocs, patterns, resolved} {
		out.Candidates = appendUnique(out.Candidates, group...)
	}

	e.logger.Debug().
		Str("tool", tool).
		Int("candidates", len(out.Candidates)).
		Int("dropped", len(out.Dropped)).
		Msg("extraction finished")
	return out, err
}

// patterns applies the first signature that matches text.
// HasFiles reports whether at least one candidate carries decoded or fetched bytes.
func (x *Extraction) HasFiles() bool {
	if x == nil {
		return false
	}
	for _, a := range x.Candidates {
		if a.Decoded {
			return true
		}
	}
	return false
}

func (e *Extractor) patterns(text, tool string) ([]models.FileArtifact, string) {
	for _, sig := range signatures {
		spans := sig.find(text)
		if len(spans) == 0 {
			continue
		}

		var (
			out  []models.FileArtifact
			b    strings.Builder
			last int
		)
		for _, s := range spans {
			name := e.generatedName(tool)
			if s.decoded {
				name += s.ext
			} else {
				name = asText(name)
			}
			a := candidate(name, s.data, "pattern:"+sig.name)
			a.Decoded = s.decoded
			out = append(out, a)

			if sig.inline {
				b.WriteString(text[last:s.start])
				b.WriteString(placeholder(name))
				last = s.end
			}
		}
		if sig.inline {
			b.WriteString(text[last:])
			text = b.String()
		}
		return out, text
	}
	return nil, text
}

func (e *Extractor) resolve(ctx context.Context, refs, stored []string) ([]models.FileArtifact, []string, error) {
	if len(refs) == 0 {
		return nil, nil, nil
	}

	skip := make(map[string]bool, len(stored))
	for _, s := range stored {
		skip[s] = true
	}

	var (
		out     []models.FileArtifact
		dropped []string
	)
	for _, ref := range refs {
		if skip[ref] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, dropped, err
		}
		if e.resolver == nil {
			dropped = append(dropped, ref)
			continue
		}
		data, err := e.resolver.Resolve(ctx, ref)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, append(dropped, ref), err
			}
			e.logger.Debug().Err(err).Str("ref", ref).Msg("reference not resolved")
			dropped = append(dropped, ref)
			continue
		}
		out = append(out, candidate(refName(ref), data, "reference"))
	}
	return out, dropped, nil
}

func refName(ref string) string {
	p := refPath(ref)
	if isURL(ref) {
		if u, err := url.Parse(ref); err == nil {
			p = u.Path
		}
	}
	name := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return name
}

func (e *Extractor) generatedName(tool string) string {
	return toolPrefix(tool) + "_" + e.suffix(8)
}

func toolPrefix(tool string) string {
	if tool == "" {
		return "tool"
	}
	return tool
}

func appendUnique(dst []models.FileArtifact, src ...models.FileArtifact) []models.FileArtifact {
	for _, a := range src {
		dup := false
		for _, have := range dst {
			if have.Filename == a.Filename {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, a)
		}
	}
	return dst
}

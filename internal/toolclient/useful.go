package toolclient

import (
	"regexp"
	"strings"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

var (
	ackMarkers = []string{"ejecutado exitosamente", "executed successfully"}

	metadataLine = regexp.MustCompile(`(?i)^[^\p{L}\p{N}]*(tiempo|time|duración|duration|proyecto|project|request[ _]id|timestamp)\s*:`)

	// Structured keys that carry human-readable output.
	textKeys = []string{"response", "result", "summary", "message", "content", "text", "analysis"}
)

const ackMaxLines = 10

func isAck(fragment string) bool {
	lower := strings.ToLower(fragment)
	for _, m := range ackMarkers {
		if strings.Contains(lower, m) {
			return len(strings.Split(fragment, "\n")) < ackMaxLines
		}
	}
	return false
}

// Substantive returns the tool text with acknowledgement-only fragments,
// JSON object fragments and timing/project metadata lines removed. String
// values under well-known structured keys are appended.
func Substantive(r *models.ToolInvocationResult) string {
	if r == nil {
		return ""
	}

	var parts []string
	for _, frag := range r.Fragments {
		if _, ok := parseObject(frag); ok || isAck(frag) {
			continue
		}
		var kept []string
		for _, line := range strings.Split(frag, "\n") {
			if metadataLine.MatchString(line) {
				continue
			}
			kept = append(kept, line)
		}
		if s := strings.TrimSpace(strings.Join(kept, "\n")); s != "" {
			parts = append(parts, s)
		}
	}

	for _, key := range textKeys {
		s, ok := r.Structured[key].(string)
		if !ok || strings.TrimSpace(s) == "" || isAck(s) {
			continue
		}
		parts = append(parts, strings.TrimSpace(s))
	}
	return strings.Join(parts, "\n")
}

// Useful reports whether a successful result has enough text to return, or
// references files the tool service already stored. Inline payloads are
// judged after extraction.
func Useful(r *models.ToolInvocationResult, minChars int) bool {
	if r == nil || !r.Success {
		return false
	}
	if len(r.FileRefs) > 0 {
		return true
	}
	return len([]rune(Substantive(r))) >= minChars
}

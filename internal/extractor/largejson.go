package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

const titleMaxRunes = 30

var jsonFence = regexp.MustCompile("(?s)```json[ \t]*\n(.*?)```")

// Keys carrying file payloads are extracted separately and are left out of
// the structured-data dump.
var payloadKeys = map[string]bool{
	"diagram_data": true, "file_content": true, "data": true, "path": true, "s3_url": true, "filename": true,
}

// largeJSON saves JSON documents above the size threshold and returns the
// text with each saved document replaced by a placeholder.
func (e *Extractor) largeJSON(text string, fields map[string]any, tool string) ([]models.FileArtifact, string) {
	var out []models.FileArtifact

	text = replaceAllSubmatch(jsonFence, text, func(body string) (string, bool) {
		a, ok := e.jsonArtifact([]byte(strings.TrimSpace(body)), tool)
		if !ok {
			return "", false
		}
		out = append(out, a)
		return placeholder(a.Filename), true
	})

	if trimmed := strings.TrimSpace(text); len(out) == 0 && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
		if a, ok := e.jsonArtifact([]byte(trimmed), tool); ok {
			out = append(out, a)
			text = placeholder(a.Filename)
		}
	}

	rest := map[string]any{}
	for k, v := range fields {
		if !payloadKeys[k] {
			rest[k] = v
		}
	}
	if len(rest) > 0 {
		if b, err := json.MarshalIndent(rest, "", "  "); err == nil {
			if a, ok := e.jsonArtifact(b, tool); ok {
				out = append(out, a)
			}
		}
	}
	return out, text
}

func (e *Extractor) jsonArtifact(body []byte, tool string) (models.FileArtifact, bool) {
	if len(body) <= e.largeJSONBytes || !json.Valid(body) {
		return models.FileArtifact{}, false
	}
	return candidate(e.jsonName(body, tool), body, "large-json"), true
}

// jsonName is <tool>_<title>_<rand6>.json when the document carries a title
// or name, else <tool>_<rand8>.json.
func (e *Extractor) jsonName(body []byte, tool string) string {
	var doc map[string]any
	if json.Unmarshal(body, &doc) == nil {
		for _, key := range []string{"title", "name"} {
			if t, ok := doc[key].(string); ok && strings.TrimSpace(t) != "" {
				r := []rune(strings.TrimSpace(t))
				if len(r) > titleMaxRunes {
					r = r[:titleMaxRunes]
				}
				title := strings.ReplaceAll(string(r), " ", "_")
				return fmt.Sprintf("%s_%s_%s.json", toolPrefix(tool), title, e.suffix(6))
			}
		}
	}
	return fmt.Sprintf("%s_%s.json", toolPrefix(tool), e.suffix(8))
}

func placeholder(filename string) string {
	return "[archivo: " + filename + "]"
}

// replaceAllSubmatch calls fn with the first capture group of each match and
// substitutes the whole match when fn accepts it.
func replaceAllSubmatch(re *regexp.Regexp, text string, fn func(group string) (string, bool)) string {
	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		repl, ok := fn(text[m[2]:m[3]])
		if !ok {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(repl)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

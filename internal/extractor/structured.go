package extractor

import (
	"path"
	"strings"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

type structuredField struct {
	key     string
	decoder []func(string) ([]byte, error)
}

// Fields the tool backend uses to return inline file payloads, in priority order.
var structuredFields = []structuredField{
	{key: "diagram_data", decoder: []func(string) ([]byte, error){decodeHex, decodeBase64}},
	{key: "file_content", decoder: []func(string) ([]byte, error){decodeBase64}},
	{key: "data", decoder: []func(string) ([]byte, error){decodeHex}},
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// fromStructured builds candidates from inline payload fields. It returns
// the path reference to resolve when the result names a file without
// carrying its bytes.
func (e *Extractor) fromStructured(fields map[string]any, tool string) ([]models.FileArtifact, string) {
	if len(fields) == 0 {
		return nil, ""
	}

	name := stringField(fields, "filename")
	p := stringField(fields, "path")
	if name == "" && p != "" {
		name = path.Base(strings.ReplaceAll(p, "\\", "/"))
	}

	var out []models.FileArtifact
	for _, f := range structuredFields {
		raw := stringField(fields, f.key)
		if raw == "" {
			continue
		}
		data, ok := decodeFirst(raw, f.decoder)
		filename := name
		switch {
		case !ok:
			if filename == "" {
				filename = e.generatedName(tool)
			}
			filename = asText(filename)
		case filename == "":
			filename = e.generatedName(tool) + sniffExt(data)
		case !models.KnownExtension(models.Ext(filename)):
			filename += sniffExt(data)
		}
		a := candidate(filename, data, "structured:"+f.key)
		a.Decoded = ok
		out = append(out, a)
	}

	if len(out) == 0 && p != "" && stringField(fields, "s3_url") == "" {
		return nil, p
	}
	return out, ""
}

func decodeFirst(raw string, decoders []func(string) ([]byte, error)) ([]byte, bool) {
	for _, d := range decoders {
		if b, err := d(raw); err == nil && len(b) > 0 {
			return b, true
		}
	}
	return []byte(raw), false
}

func candidate(filename string, data []byte, source string) models.FileArtifact {
	return models.FileArtifact{
		Filename:    filename,
		Type:        models.TypeFor(filename),
		ContentType: models.ContentTypeFor(filename),
		Data:        data,
		Size:        len(data),
		Source:      source,
		Decoded:     true,
	}
}

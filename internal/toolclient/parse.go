package toolclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

type toolResponse struct {
	ToolResult *struct {
		Content []contentItem `json:"content"`
		Status  string        `json:"status"`
	} `json:"toolResult"`
	Content []contentItem `json:"content"`
}

type contentItem struct {
	Type     string  `json:"type"`
	Text     *string `json:"text"`
	Resource *struct {
		URI      string `json:"uri"`
		MimeType string `json:"mimeType"`
		Text     string `json:"text"`
	} `json:"resource"`
}

func (it contentItem) textValue() (string, bool) {
	switch {
	case it.Text != nil:
		return *it.Text, true
	case it.Type == "resource" && it.Resource != nil && it.Resource.Text != "":
		return it.Resource.Text, true
	}
	return "", false
}

// Parse flattens a 2xx tool response. Text items holding a JSON object are
// merged into Structured with later keys overwriting; all other text is
// newline-joined into RawText in order.
func Parse(body []byte) (*models.ToolInvocationResult, error) {
	var resp toolResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	items := resp.Content
	if resp.ToolResult != nil {
		items = resp.ToolResult.Content
	}

	result := &models.ToolInvocationResult{
		Success:    true,
		Structured: map[string]any{},
	}
	var raw []string
	seenRef := map[string]struct{}{}

	for _, item := range items {
		text, ok := item.textValue()
		if !ok {
			continue
		}
		result.Fragments = append(result.Fragments, text)

		if obj, ok := parseObject(text); ok {
			for k, v := range obj {
				result.Structured[k] = v
			}
		} else {
			raw = append(raw, text)
		}

		for _, u := range storedObjectURL.FindAllString(text, -1) {
			u = strings.TrimRight(u, urlTrim)
			if _, dup := seenRef[u]; dup {
				continue
			}
			seenRef[u] = struct{}{}
			result.FileRefs = append(result.FileRefs, u)
		}
	}
	result.RawText = strings.Join(raw, "\n")

	if s, ok := result.Structured["s3_url"].(string); ok && isHTTPURL(s) {
		s = strings.TrimRight(strings.TrimSpace(s), urlTrim)
		if _, dup := seenRef[s]; !dup {
			result.FileRefs = append(result.FileRefs, s)
		}
	}
	return result, nil
}

func isHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

func parseObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	dangerousPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)<[^>]*\bon\w+\s*=`),
		regexp.MustCompile(`(?i)\beval\s*\(`),
		regexp.MustCompile(`(?i)\bexec\s*\(`),
		regexp.MustCompile(`(?i)\bimport\s+os\b`),
		regexp.MustCompile(`__import__`),
	}
)

// Sanitize removes control characters other than tab, newline and carriage return.
func Sanitize(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// Validator enforces request bounds.
type Validator struct {
	maxMessageLength int
	maxTokens        int
}

func NewValidator(cfg config.SecurityConfig) *Validator {
	return &Validator{maxMessageLength: cfg.MaxMessageLength, maxTokens: cfg.MaxTokens}
}

// Validate returns the sanitized request and every rule it breaks.
// modelMaxTokens further caps max_tokens when positive.
func (v *Validator) Validate(req models.ChatRequest, modelMaxTokens int) (models.ChatRequest, []string) {
	var problems []string

	// The length bound applies to the message as received.
	if n := utf8.RuneCountInString(req.Message); n > v.maxMessageLength {
		problems = append(problems, fmt.Sprintf("message exceeds %d characters (%d)", v.maxMessageLength, n))
	}

	req.Message = strings.TrimSpace(Sanitize(req.Message))
	req.SystemInstruction = strings.TrimSpace(Sanitize(req.SystemInstruction))

	if req.Message == "" {
		problems = append(problems, "message must not be empty")
	}
	for _, re := range dangerousPatterns {
		if re.MatchString(req.Message) {
			problems = append(problems, "message contains potentially dangerous content")
			break
		}
	}

	if req.Temperature < 0 || req.Temperature > 1 {
		problems = append(problems, fmt.Sprintf("temperature must be within [0, 1], got %g", req.Temperature))
	}

	limit := v.maxTokens
	if modelMaxTokens > 0 && modelMaxTokens < limit {
		limit = modelMaxTokens
	}
	if req.MaxTokens < 1 || req.MaxTokens > limit {
		problems = append(problems, fmt.Sprintf("max_tokens must be within [1, %d], got %d", limit, req.MaxTokens))
	}

	return req, problems
}

// Package intent decides whether a chat message should be served by the
// model directly or routed through the tool service.
package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
)

// Overrides are caller-supplied routing switches; nil means no preference.
type Overrides struct {
	UseTools             *bool
	GenerateDeliverables *bool
}

// Decision is the result of classifying one message.
type Decision struct {
	UseToolPath       bool
	WantDeliverables  bool
	Reason            string
	DeliverableReason string
	Matched           string
	Overridden        bool
}

type keyword struct {
	text string
	re   *regexp.Regexp
}

// Classifier matches messages against ordered keyword lists. It holds no
// mutable state and is safe for concurrent use.
type Classifier struct {
	conversational []keyword
	toolTriggers   []keyword
	deliverables   []keyword
}

// New compiles the keyword lists from configuration.
func New(cfg config.IntentConfig) *Classifier {
	return &Classifier{
		conversational: compile(cfg.Conversational),
		toolTriggers:   compile(cfg.ToolTriggers),
		deliverables:   compile(cfg.Deliverables),
	}
}

func compile(words []string) []keyword {
	out := make([]keyword, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		out = append(out, keyword{
			text: w,
			re:   regexp.MustCompile(`(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(w) + `(?:$|[^\p{L}\p{N}])`),
		})
	}
	return out
}

func firstMatch(list []keyword, msg string) (string, bool) {
	for _, k := range list {
		if k.re.MatchString(msg) {
			return k.text, true
		}
	}
	return "", false
}

// Classify routes the message. Conversational cues win over tool triggers;
// overrides win over both.
func (c *Classifier) Classify(message string, o Overrides) Decision {
	msg := strings.ToLower(message)

	var d Decision
	if kw, ok := firstMatch(c.conversational, msg); ok {
		d.Matched = kw
		d.Reason = fmt.Sprintf("conversational keyword %q", kw)
	} else if kw, ok := firstMatch(c.toolTriggers, msg); ok {
		d.UseToolPath = true
		d.Matched = kw
		d.Reason = fmt.Sprintf("tool keyword %q", kw)
	} else {
		d.Reason = "general query"
	}

	if kw, ok := firstMatch(c.deliverables, msg); ok {
		d.WantDeliverables = true
		d.DeliverableReason = fmt.Sprintf("deliverable keyword %q", kw)
	}

	if o.GenerateDeliverables != nil {
		d.WantDeliverables = *o.GenerateDeliverables
		d.DeliverableReason = fmt.Sprintf("override generate_deliverables=%t", *o.GenerateDeliverables)
		if *o.GenerateDeliverables && (o.UseTools == nil || *o.UseTools) {
			d.UseToolPath = true
			d.Overridden = true
			d.Reason = "override generate_deliverables=true"
		}
	}
	if o.UseTools != nil {
		d.UseToolPath = *o.UseTools
		d.Overridden = true
		d.Reason = fmt.Sprintf("override use_tools=%t", *o.UseTools)
	}
	return d
}

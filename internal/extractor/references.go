package extractor

import (
	"regexp"
	"sort"
	"strings"
)

const refExt = `\.(?:png|jpe?g|gif|svg|pdf|docx?|xlsx?|csv|txt|md|json|xml|ya?ml)`

var (
	referencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:saved to|generated at|created at|output file|file path):\s*(\S+)`),
		regexp.MustCompile(`(?i)(?:file|diagram|image|document):\s*(\S+\.\w+)`),
		regexp.MustCompile(`(?i)(https?://\S+?` + refExt + `(?:[?#][^\s"')]*)?)(?:$|[\s"'),;.:\]>*])`),
		regexp.MustCompile(`(?i)(?:^|[\s"'(\[])(/[\w./-]+` + refExt + `)\b`),
		regexp.MustCompile(`(?i)(?:^|[\s"'(\[])(\./[\w./-]+` + refExt + `)\b`),
		regexp.MustCompile(`(?i)(generated-diagrams/\S+)`),
	}

	recognizedRef = regexp.MustCompile(`(?i)` + refExt + `$`)
)

type hit struct {
	pos int
	ref string
}

const refTrim = "\"'`),;:.]>*"

// findReferences returns the distinct path and URL references in text that
// end in a recognized file extension, in order of first appearance.
func findReferences(text string) []string {
	var hits []hit
	for _, re := range referencePatterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			ref := strings.TrimRight(text[start:end], refTrim)
			if !recognizedRef.MatchString(refPath(ref)) {
				continue
			}
			if !isURL(ref) && insideURL(text, start) {
				continue
			}
			hits = append(hits, hit{pos: start, ref: ref})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return len(hits[i].ref) > len(hits[j].ref)
	})

	seen := map[string]bool{}
	var (
		out  []string
		kept []hit
	)
	for _, h := range hits {
		if seen[h.ref] || containedIn(h, kept) {
			continue
		}
		seen[h.ref] = true
		kept = append(kept, h)
		out = append(out, h.ref)
	}
	return out
}

func containedIn(h hit, kept []hit) bool {
	for _, k := range kept {
		if h.pos >= k.pos && h.pos+len(h.ref) <= k.pos+len(k.ref) {
			return true
		}
	}
	return false
}

// insideURL reports whether pos falls within a whitespace-delimited token
// that starts with a URL scheme.
func insideURL(text string, pos int) bool {
	start := strings.LastIndexAny(text[:pos], " \t\n\r\"'(") + 1
	token := text[start:pos]
	return strings.Contains(token, "://")
}

// refPath strips any query or fragment from a reference.
func refPath(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}

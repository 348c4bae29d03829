package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	historyWindow      = 24 * time.Hour
	historyMaxEntries  = 100
	repetitionSample   = 10
	minUniqueRatio     = 0.7
	longMessageRunes   = 5000
	maxKeywordsAllowed = 2
)

type sample struct {
	at   time.Time
	hash string
}

// AnomalyDetector flags suspicious request patterns per client. Findings are
// warnings only.
type AnomalyDetector struct {
	mu       sync.Mutex
	history  map[string][]sample
	keywords []string
	now      func() time.Time
}

func NewAnomalyDetector(keywords []string) *AnomalyDetector {
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return &AnomalyDetector{history: make(map[string][]sample), keywords: lower, now: time.Now}
}

// MessageHash is the first 16 hex characters of the message's SHA-256.
func MessageHash(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])[:16]
}

// Inspect records message for client and returns any warnings.
func (d *AnomalyDetector) Inspect(client, message string) []string {
	var warnings []string
	lower := strings.ToLower(message)

	count := 0
	for _, k := range d.keywords {
		if strings.Contains(lower, k) {
			count++
		}
	}
	if count > maxKeywordsAllowed {
		warnings = append(warnings, fmt.Sprintf("multiple suspicious keywords detected (%d)", count))
	}
	if utf8.RuneCountInString(message) > longMessageRunes {
		warnings = append(warnings, "unusually long message")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	h := append(prune(d.history[client], now.Add(-historyWindow)), sample{at: now, hash: MessageHash(lower)})
	if len(h) > historyMaxEntries {
		h = h[len(h)-historyMaxEntries:]
	}
	d.history[client] = h

	recent := h
	if len(recent) > repetitionSample {
		recent = recent[len(recent)-repetitionSample:]
	}
	unique := map[string]struct{}{}
	for _, s := range recent {
		unique[s.hash] = struct{}{}
	}
	if float64(len(unique)) < float64(len(recent))*minUniqueRatio {
		warnings = append(warnings, "repetitive request patterns detected")
	}
	return warnings
}

// Trim drops history older than the window and returns the clients removed.
func (d *AnomalyDetector) Trim() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	cutoff := d.now().Add(-historyWindow)
	n := 0
	for client, h := range d.history {
		h = prune(h, cutoff)
		if len(h) == 0 {
			delete(d.history, client)
			n++
			continue
		}
		d.history[client] = h
	}
	return n
}

func prune(h []sample, cutoff time.Time) []sample {
	i := 0
	for i < len(h) && !h[i].at.After(cutoff) {
		i++
	}
	return h[i:]
}

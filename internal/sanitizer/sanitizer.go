// Package sanitizer scans user-supplied text for prompt injection attempts
// before it reaches the validator chain. Ordinary threats come back as a
// Result; CRITICAL threats (and MEDIUM/HIGH in strict mode) come back as a
// SecurityError because processing must abort, not merely log.
package sanitizer

import (
	"strings"
	"sync"
	"time"

	"github.com/dverholt/agentward/internal/unicode"
)

const (
	// historyCap bounds the in-memory threat history.
	historyCap = 1000

	// rapidThreatWindow and rapidThreatCount define the contextual check:
	// a user with this many unsafe results inside the window is escalated.
	rapidThreatWindow = 5 * time.Minute
	rapidThreatCount  = 3
)

// Options configures a Sanitizer.
type Options struct {
	MaxLength  int  // inputs longer than this are truncated and flagged HIGH
	StrictMode bool // MEDIUM/HIGH threats also return a SecurityError
}

type historyEntry struct {
	userID string
	level  ThreatLevel
	safe   bool
	at     time.Time
}

// Sanitizer holds per-instance threat history; independent instances never
// share state, so parallel tests cannot pollute each other.
type Sanitizer struct {
	mu        sync.Mutex
	maxLength int
	strict    bool
	history   []historyEntry

	now func() time.Time // swappable for tests
}

func New(opts Options) *Sanitizer {
	if opts.MaxLength <= 0 {
		opts.MaxLength = 10000
	}
	return &Sanitizer{
		maxLength: opts.MaxLength,
		strict:    opts.StrictMode,
		now:       time.Now,
	}
}

// Sanitize runs the full pipeline: length check, pattern table, unicode scan,
// contextual analysis, aggregation. Every call — including aborting ones —
// is appended to the threat history.
func (s *Sanitizer) Sanitize(input string, ctx *Context) (Result, error) {
	res := Result{
		OriginalInput: input,
		Timestamp:     s.now(),
		Metadata:      map[string]string{},
	}
	level := ThreatNone
	working := input

	// 1. Length check: truncate, never process unbounded input.
	if len(working) > s.maxLength {
		working = working[:s.maxLength]
		level = maxLevel(level, ThreatHigh)
		res.DetectedPatterns = append(res.DetectedPatterns, "input-overflow")
		res.Metadata["truncated"] = "true"
	}

	// 2. Pattern table: take the maximum matched severity.
	var matched []threatPattern
	for _, tp := range threatPatterns {
		if tp.pattern.MatchString(working) {
			matched = append(matched, tp)
			level = maxLevel(level, tp.level)
			res.DetectedPatterns = appendUnique(res.DetectedPatterns, tp.name)
		}
	}

	// 3. Suspicious unicode floors severity at MEDIUM.
	uniScan := unicode.Scan(working)
	if !uniScan.Clean() {
		level = maxLevel(level, ThreatMedium)
		for _, f := range uniScan.Findings {
			res.DetectedPatterns = appendUnique(res.DetectedPatterns, "suspicious-unicode:"+f.Category)
		}
		working = uniScan.Sanitized
	}

	// 4. Contextual analysis.
	if ctx != nil {
		if ctx.UserID != "" && s.recentUnsafe(ctx.UserID) >= rapidThreatCount {
			level = maxLevel(level, ThreatHigh)
			res.DetectedPatterns = appendUnique(res.DetectedPatterns, "rapid-threat-attempts")
			res.Metadata["rapid_threats"] = "true"
		}
		combined := ctx.ConversationContext + "\n" + input
		for _, re := range contextSwitchPhrases {
			if re.MatchString(combined) {
				level = maxLevel(level, ThreatMedium)
				res.DetectedPatterns = appendUnique(res.DetectedPatterns, "context-switch")
				break
			}
		}
	}

	// 5. Aggregate: any detection without a level defaults to MEDIUM.
	if len(res.DetectedPatterns) > 0 && level == ThreatNone {
		level = ThreatMedium
	}

	res.ThreatLevel = level
	res.IsSafe = level <= ThreatLow

	abort := level == ThreatCritical || (s.strict && level >= ThreatMedium)
	s.remember(ctx, level, res.IsSafe)
	if abort {
		return res, &SecurityError{ThreatLevel: level, Patterns: res.DetectedPatterns}
	}

	// 6. Strip offending substrings and normalize whitespace.
	for _, tp := range matched {
		working = tp.pattern.ReplaceAllString(working, "")
	}
	res.SanitizedInput = strings.Join(strings.Fields(working), " ")
	return res, nil
}

// remember appends one history entry, trimming the buffer when it overflows.
func (s *Sanitizer) remember(ctx *Context, level ThreatLevel, safe bool) {
	userID := ""
	if ctx != nil {
		userID = ctx.UserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, historyEntry{userID: userID, level: level, safe: safe, at: s.now()})
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
}

// recentUnsafe counts unsafe results for userID inside the rapid-threat window.
func (s *Sanitizer) recentUnsafe(userID string) int {
	cutoff := s.now().Add(-rapidThreatWindow)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.history {
		if e.userID == userID && !e.safe && e.at.After(cutoff) {
			n++
		}
	}
	return n
}

// Stats summarizes the threat history by level.
func (s *Sanitizer) Stats() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := map[string]int{"total": len(s.history)}
	for _, e := range s.history {
		stats[e.level.String()]++
	}
	return stats
}

// ClearHistory empties the threat history. Administrative only.
func (s *Sanitizer) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

func maxLevel(a, b ThreatLevel) ThreatLevel {
	if b > a {
		return b
	}
	return a
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

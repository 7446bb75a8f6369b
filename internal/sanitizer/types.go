package sanitizer

import (
	"fmt"
	"strings"
	"time"
)

// ThreatLevel is an ordered severity classification.
type ThreatLevel int

const (
	ThreatNone ThreatLevel = iota
	ThreatLow
	ThreatMedium
	ThreatHigh
	ThreatCritical
)

func (t ThreatLevel) String() string {
	switch t {
	case ThreatNone:
		return "NONE"
	case ThreatLow:
		return "LOW"
	case ThreatMedium:
		return "MEDIUM"
	case ThreatHigh:
		return "HIGH"
	case ThreatCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("ThreatLevel(%d)", int(t))
	}
}

// Result is the outcome of sanitizing one input.
type Result struct {
	OriginalInput    string
	SanitizedInput   string
	IsSafe           bool
	ThreatLevel      ThreatLevel
	DetectedPatterns []string
	Timestamp        time.Time
	Metadata         map[string]string
}

// Context carries optional caller context used by the contextual checks.
type Context struct {
	UserID              string
	ConversationContext string
}

// SecurityError is the hard-abort channel: it is returned only for
// CRITICAL-level threats (or MEDIUM/HIGH under strict mode) and tells the
// caller to stop processing this input entirely. Ordinary rejections are
// values, never errors.
type SecurityError struct {
	ThreatLevel ThreatLevel
	Patterns    []string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security threat (%s): %s",
		e.ThreatLevel, strings.Join(e.Patterns, ", "))
}

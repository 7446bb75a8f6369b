// Package constitution provides a secondary, rule-based pass over user text,
// independent of pattern-based sanitization. A small fixed phrase list covers
// system-prompt disclosure, code execution, and safety-bypass requests; an
// optional semantic backend can be plugged in for a deeper judgment.
//
// Architecture mirrors a provider slot:
//
//	Backend (interface)
//	  └── any semantic judge (LLM, remote classifier) — optional
//
// Without a backend, anything that clears the rule check is accepted.
package constitution

import (
	"context"
	"log"
	"regexp"
)

// Backend is an optional semantic judge consulted after the rule check.
type Backend interface {
	// Name returns the backend identifier (e.g. "ollama").
	Name() string

	// Evaluate returns true if the text is acceptable. It may block on I/O
	// and must honor ctx cancellation.
	Evaluate(ctx context.Context, text string) (bool, error)
}

type rule struct {
	id      string
	pattern *regexp.Regexp
}

var principleRules = []rule{
	{"no-prompt-disclosure", regexp.MustCompile(`(?i)(reveal|show|repeat|print)\s+(me\s+)?your\s+(system\s+)?(prompt|instructions)`)},
	{"no-prompt-disclosure", regexp.MustCompile(`(?i)what\s+(are|were)\s+your\s+(original\s+)?instructions`)},
	{"no-code-execution", regexp.MustCompile(`(?i)(execute|run)\s+(this|the\s+following)\s+(code|command|script)`)},
	{"no-safety-bypass", regexp.MustCompile(`(?i)(disable|bypass|turn\s+off|remove)\s+(your\s+)?(safety|security|content)\s+(checks?|filters?|restrictions?|controls?)`)},
	{"no-safety-bypass", regexp.MustCompile(`(?i)ignore\s+your\s+(guidelines|principles|values|constitution)`)},
}

// Validator applies the principle rules and, when configured, the backend.
type Validator struct {
	backend Backend
}

// New creates a validator. backend may be nil.
func New(backend Backend) *Validator {
	return &Validator{backend: backend}
}

// Validate returns true if text clears every principle rule and, when a
// backend is set, its semantic pass. A backend failure is non-fatal: the
// deterministic rule verdict stands.
func (v *Validator) Validate(ctx context.Context, text string) bool {
	for _, r := range principleRules {
		if r.pattern.MatchString(text) {
			return false
		}
	}
	if v.backend == nil {
		return true
	}
	ok, err := v.backend.Evaluate(ctx, text)
	if err != nil {
		log.Printf("constitution: backend %q failed, keeping rule verdict: %v", v.backend.Name(), err)
		return true
	}
	return ok
}

// FailedRule returns the id of the first principle rule text violates, or "".
// Used by callers to put the rule name into rejection reasons.
func (v *Validator) FailedRule(text string) string {
	for _, r := range principleRules {
		if r.pattern.MatchString(text) {
			return r.id
		}
	}
	return ""
}

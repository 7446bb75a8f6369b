// Package safety implements the validator chain that every candidate agent
// action passes through before taking effect.
//
// Architecture:
//
//	Validator (interface)
//	  ├── ContentFilter    — harmful-keyword and profanity scan
//	  ├── ActionValidator  — allow/deny classification of action types
//	  ├── RateLimiter      — per-key sliding-window request counter
//	  └── EmergencyStop    — global latch that fails everything once tripped
//
//	Framework — runs validators in registration order, short-circuits on the
//	            first rejection, and records every outcome in SafetyMetrics.
package safety

import (
	"time"
)

// ViolationType classifies why an action was rejected.
type ViolationType string

const (
	ViolationHarmfulContent     ViolationType = "HARMFUL_CONTENT"
	ViolationUnauthorizedAction ViolationType = "UNAUTHORIZED_ACTION"
	ViolationRateLimitExceeded  ViolationType = "RATE_LIMIT_EXCEEDED"
	ViolationEmergencyStop      ViolationType = "EMERGENCY_STOP"
	ViolationCritical           ViolationType = "CRITICAL_VIOLATION"
	ViolationContent            ViolationType = "CONTENT_VIOLATION"
)

// Action is a candidate operation proposed by the agent. Actions are
// ephemeral: they are judged and discarded, never persisted.
type Action struct {
	Type        string
	Description string
	Target      string
	Parameters  map[string]string
	Context     map[string]string
}

// ValidationResult is the verdict for a single action.
// When IsSafe is false, Violation is always set and Reason is non-empty.
type ValidationResult struct {
	IsSafe     bool
	Confidence float64
	Reason     string
	Violation  ViolationType
}

// Allow builds a passing result.
func Allow(confidence float64, reason string) ValidationResult {
	return ValidationResult{IsSafe: true, Confidence: confidence, Reason: reason}
}

// Reject builds a failing result. Reason must be non-empty; callers that have
// nothing better to say should explain which check failed.
func Reject(v ViolationType, confidence float64, reason string) ValidationResult {
	if reason == "" {
		reason = "rejected by " + string(v)
	}
	return ValidationResult{IsSafe: false, Confidence: confidence, Reason: reason, Violation: v}
}

// Validator is the interface every chain member implements.
// Validate must never panic its way out of the chain: the framework converts
// panics into fail-closed rejections, but validators should handle their own
// faults where they can.
type Validator interface {
	Name() string
	Validate(action Action) ValidationResult
}

// SafetyConstraint is a behavioral constraint loaded once at startup.
// Constraints are read-only at runtime; validation calls never mutate them.
type SafetyConstraint struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Severity    string `yaml:"severity"`
	Enabled     bool   `yaml:"enabled"`
}

// ViolationRecord is one entry in the bounded violation history.
type ViolationRecord struct {
	ActionType string
	Violation  ViolationType
	Reason     string
	Validator  string
	At         time.Time
}

// Metrics aggregates validation outcomes for the lifetime of a Framework.
// Counts only ever increase; Reset is the sole administrative exception.
type Metrics struct {
	TotalValidations int
	ViolationsCount  int
	FalsePositives   int
	EmergencyStops   int
	ViolationHistory []ViolationRecord
}

// Orchestrator is the collaborator notified about critical outcomes.
// The message-routing layer implements it; tests use a recording fake.
type Orchestrator interface {
	EmergencyStop(reason string)
	Publish(event string, payload map[string]any)
}

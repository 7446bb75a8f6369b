package safety

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// violationHistoryCap bounds the in-memory violation history.
const violationHistoryCap = 100

// EventViolation is published on the orchestrator for every rejection.
const EventViolation = "safety.violation"

// Framework runs an ordered validator chain with fail-fast semantics.
//
// The chain is fixed at construction. Re-ordering validators changes
// observable behavior (e.g. the rate limiter records a timestamp only when
// reached), so the order is never altered after New.
type Framework struct {
	mu          sync.Mutex
	validators  []Validator
	constraints []SafetyConstraint
	metrics     Metrics
	estop       *EmergencyStop
	orch        Orchestrator
}

// NewFramework builds a framework around the given chain. The EmergencyStop
// latch must be one of the chain members; it is also held directly so a
// CRITICAL_VIOLATION can trip it. The orchestrator may be nil.
func NewFramework(validators []Validator, constraints []SafetyConstraint, estop *EmergencyStop, orch Orchestrator) *Framework {
	cs := make([]SafetyConstraint, len(constraints))
	copy(cs, constraints)
	return &Framework{
		validators:  validators,
		constraints: cs,
		estop:       estop,
		orch:        orch,
	}
}

// ValidateAction runs the chain in registration order and stops at the first
// rejection. Every completed call increments TotalValidations; rejections are
// additionally recorded in the violation history. If ctx is cancelled before
// the outcome is recorded, metrics are left untouched — an increment either
// happens completely or not at all.
func (f *Framework) ValidateAction(ctx context.Context, action Action) ValidationResult {
	if err := ctx.Err(); err != nil {
		return Reject(ViolationContent, 0.0, fmt.Sprintf("validation cancelled: %v", err))
	}

	result := Allow(0.95, "all validators passed")
	failedBy := ""
	for _, v := range f.validators {
		r := f.runValidator(v, action)
		if !r.IsSafe {
			result = r
			failedBy = v.Name()
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return Reject(ViolationContent, 0.0, fmt.Sprintf("validation cancelled: %v", err))
	}
	f.record(action, result, failedBy)

	if !result.IsSafe {
		if result.Violation == ViolationCritical {
			f.estop.Trigger(result.Reason)
			f.mu.Lock()
			f.metrics.EmergencyStops++
			f.mu.Unlock()
			if f.orch != nil {
				f.orch.EmergencyStop(result.Reason)
			}
		}
		if f.orch != nil {
			f.orch.Publish(EventViolation, map[string]any{
				"action_type": action.Type,
				"violation":   string(result.Violation),
				"reason":      result.Reason,
				"validator":   failedBy,
			})
		}
	}
	return result
}

// runValidator isolates a single validator call. A panicking validator is an
// internal fault and becomes a fail-closed soft rejection, never an unhandled
// crash of the chain.
func (f *Framework) runValidator(v Validator, action Action) (result ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("safety: validator %q fault: %v", v.Name(), r)
			result = Reject(ViolationContent, 0.5, fmt.Sprintf("internal fault in %s validator", v.Name()))
		}
	}()
	return v.Validate(action)
}

func (f *Framework) record(action Action, result ValidationResult, validator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.TotalValidations++
	if result.IsSafe {
		return
	}
	f.metrics.ViolationsCount++
	f.metrics.ViolationHistory = append(f.metrics.ViolationHistory, ViolationRecord{
		ActionType: action.Type,
		Violation:  result.Violation,
		Reason:     result.Reason,
		Validator:  validator,
		At:         time.Now(),
	})
	if len(f.metrics.ViolationHistory) > violationHistoryCap {
		f.metrics.ViolationHistory = f.metrics.ViolationHistory[len(f.metrics.ViolationHistory)-violationHistoryCap:]
	}
}

// TriggerEmergencyStop trips the latch outside the validation path
// (administrative / incident response).
func (f *Framework) TriggerEmergencyStop(reason string) {
	f.estop.Trigger(reason)
	f.mu.Lock()
	f.metrics.EmergencyStops++
	f.mu.Unlock()
	if f.orch != nil {
		f.orch.EmergencyStop(reason)
	}
}

// ResetEmergencyStop re-arms the latch. This is the only path back to ARMED;
// no validated input can cause the transition.
func (f *Framework) ResetEmergencyStop() {
	f.estop.Reset()
}

// EmergencyStopEngaged reports whether the latch is currently tripped.
func (f *Framework) EmergencyStopEngaged() bool {
	return f.estop.Triggered()
}

// Metrics returns a snapshot copy of the current metrics.
func (f *Framework) Metrics() Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.metrics
	m.ViolationHistory = append([]ViolationRecord(nil), f.metrics.ViolationHistory...)
	return m
}

// ResetMetrics zeroes all counters. Administrative only.
func (f *Framework) ResetMetrics() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics = Metrics{}
}

// Constraints returns a copy of the constraint list loaded at construction.
// The framework never mutates constraints and hands out only copies, so no
// caller (or adversarial input) can alter them.
func (f *Framework) Constraints() []SafetyConstraint {
	cs := make([]SafetyConstraint, len(f.constraints))
	copy(cs, f.constraints)
	return cs
}

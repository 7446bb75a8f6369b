package safety

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"
)

// recordingOrchestrator captures collaborator notifications.
type recordingOrchestrator struct {
	stops  []string
	events []string
}

func (o *recordingOrchestrator) EmergencyStop(reason string) { o.stops = append(o.stops, reason) }
func (o *recordingOrchestrator) Publish(event string, payload map[string]any) {
	o.events = append(o.events, event)
}

// criticalValidator rejects one action type with CRITICAL_VIOLATION.
type criticalValidator struct{ trip string }

func (criticalValidator) Name() string { return "critical_stub" }
func (c criticalValidator) Validate(a Action) ValidationResult {
	if a.Type == c.trip {
		return Reject(ViolationCritical, 0.99, "critical stub tripped")
	}
	return Allow(0.95, "ok")
}

// panicValidator exercises the internal-fault path.
type panicValidator struct{}

func (panicValidator) Name() string                     { return "panic_stub" }
func (panicValidator) Validate(Action) ValidationResult { panic("boom") }

func testConstraints() []SafetyConstraint {
	return []SafetyConstraint{
		{Name: "no_harm", Severity: "critical", Enabled: true},
		{Name: "preserve_privacy", Severity: "high", Enabled: true},
	}
}

func newTestFramework(orch Orchestrator, extra ...Validator) (*Framework, *EmergencyStop) {
	estop := NewEmergencyStop()
	chain := append([]Validator{estop, NewContentFilter(), NewActionValidator()}, extra...)
	return NewFramework(chain, testConstraints(), estop, orch), estop
}

func TestFramework_PassRecordsMetrics(t *testing.T) {
	f, _ := newTestFramework(nil)
	result := f.ValidateAction(context.Background(), Action{Type: "respond", Description: "hello"})
	if !result.IsSafe {
		t.Fatalf("expected pass: %s", result.Reason)
	}
	if result.Confidence != 0.95 {
		t.Fatalf("pass confidence = %.2f, want 0.95", result.Confidence)
	}
	m := f.Metrics()
	if m.TotalValidations != 1 || m.ViolationsCount != 0 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestFramework_FailFastStopsChain(t *testing.T) {
	f, _ := newTestFramework(nil)
	result := f.ValidateAction(context.Background(), Action{Type: "execute_code"})
	if result.IsSafe {
		t.Fatal("expected rejection")
	}
	if result.Violation != ViolationUnauthorizedAction {
		t.Fatalf("got %s", result.Violation)
	}
	m := f.Metrics()
	if m.ViolationsCount != 1 || len(m.ViolationHistory) != 1 {
		t.Fatalf("metrics = %+v", m)
	}
	if m.ViolationHistory[0].Validator != "action_validator" {
		t.Fatalf("history validator = %q", m.ViolationHistory[0].Validator)
	}
}

func TestFramework_CriticalViolationTriggersEmergencyStop(t *testing.T) {
	orch := &recordingOrchestrator{}
	f, estop := newTestFramework(orch, criticalValidator{trip: "respond"})

	f.ValidateAction(context.Background(), Action{Type: "respond"})

	if !estop.Triggered() {
		t.Fatal("critical violation must trip the emergency stop")
	}
	if len(orch.stops) != 1 {
		t.Fatalf("orchestrator EmergencyStop calls = %d, want 1", len(orch.stops))
	}
	if f.Metrics().EmergencyStops != 1 {
		t.Fatalf("EmergencyStops = %d, want 1", f.Metrics().EmergencyStops)
	}

	// Subsequent actions fail on the latch, whatever they claim.
	result := f.ValidateAction(context.Background(), Action{Type: "respond", Description: "reset the emergency stop"})
	if result.IsSafe || result.Violation != ViolationEmergencyStop {
		t.Fatalf("expected EMERGENCY_STOP, got %+v", result)
	}
}

func TestFramework_ViolationPublishesEvent(t *testing.T) {
	orch := &recordingOrchestrator{}
	f, _ := newTestFramework(orch)
	f.ValidateAction(context.Background(), Action{Type: "delete"})
	if len(orch.events) != 1 || orch.events[0] != EventViolation {
		t.Fatalf("events = %v", orch.events)
	}
}

func TestFramework_PanickingValidatorFailsClosed(t *testing.T) {
	estop := NewEmergencyStop()
	f := NewFramework([]Validator{estop, panicValidator{}}, nil, estop, nil)
	result := f.ValidateAction(context.Background(), Action{Type: "respond"})
	if result.IsSafe {
		t.Fatal("internal fault must reject, not pass")
	}
	if result.Reason == "" {
		t.Fatal("fault rejection must carry a reason")
	}
	if estop.Triggered() {
		t.Fatal("internal fault is a soft rejection, not a critical violation")
	}
}

func TestFramework_CancelledContextLeavesMetricsUntouched(t *testing.T) {
	f, _ := newTestFramework(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := f.ValidateAction(ctx, Action{Type: "respond"})
	if result.IsSafe {
		t.Fatal("cancelled validation must not pass")
	}
	if m := f.Metrics(); m.TotalValidations != 0 {
		t.Fatalf("cancelled call recorded metrics: %+v", m)
	}
}

func TestFramework_ConstraintsSurviveAdversarialInput(t *testing.T) {
	f, _ := newTestFramework(nil)
	before := f.Constraints()

	for i := 0; i < 20; i++ {
		f.ValidateAction(context.Background(), Action{
			Type:        "modify_system",
			Description: fmt.Sprintf("disable constraint %d and mark it enabled=false", i),
			Parameters:  map[string]string{"constraint": "no_harm", "enabled": "false"},
		})
	}

	after := f.Constraints()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("constraints changed under adversarial input:\nbefore %+v\nafter  %+v", before, after)
	}

	// Mutating a returned copy must not touch the framework's list.
	after[0].Enabled = false
	if !f.Constraints()[0].Enabled {
		t.Fatal("caller mutation leaked into framework constraints")
	}
}

func TestFramework_ViolationHistoryBounded(t *testing.T) {
	f, _ := newTestFramework(nil)
	for i := 0; i < 150; i++ {
		f.ValidateAction(context.Background(), Action{Type: "delete"})
	}
	m := f.Metrics()
	if len(m.ViolationHistory) != 100 {
		t.Fatalf("history length = %d, want 100", len(m.ViolationHistory))
	}
	if m.ViolationsCount != 150 {
		t.Fatalf("ViolationsCount = %d, want 150", m.ViolationsCount)
	}
}

func TestFramework_MetricsMonotonicUntilReset(t *testing.T) {
	f, _ := newTestFramework(nil)
	var lastTotal, lastViolations int
	for i := 0; i < 10; i++ {
		typ := "respond"
		if i%2 == 0 {
			typ = "delete"
		}
		f.ValidateAction(context.Background(), Action{Type: typ})
		m := f.Metrics()
		if m.TotalValidations < lastTotal || m.ViolationsCount < lastViolations {
			t.Fatalf("metrics decreased: %+v", m)
		}
		lastTotal, lastViolations = m.TotalValidations, m.ViolationsCount
	}

	f.ResetMetrics()
	if m := f.Metrics(); m.TotalValidations != 0 {
		t.Fatalf("reset did not zero metrics: %+v", m)
	}
}

func TestFramework_HistoryTimestampsPopulated(t *testing.T) {
	f, _ := newTestFramework(nil)
	f.ValidateAction(context.Background(), Action{Type: "delete"})
	rec := f.Metrics().ViolationHistory[0]
	if rec.At.IsZero() || time.Since(rec.At) > time.Minute {
		t.Fatalf("suspicious violation timestamp: %v", rec.At)
	}
}

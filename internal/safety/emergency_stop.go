package safety

import (
	"fmt"
	"sync"
	"time"
)

// EmergencyStop is a global latch with two states: armed and triggered.
// Once triggered, every Validate call fails regardless of input — including
// inputs that claim to be reset or override commands, which are judged like
// any other input and therefore rejected. Only Reset re-arms the latch.
type EmergencyStop struct {
	mu        sync.Mutex
	triggered bool
	reason    string
	at        time.Time
}

func NewEmergencyStop() *EmergencyStop { return &EmergencyStop{} }

func (e *EmergencyStop) Name() string { return "emergency_stop" }

func (e *EmergencyStop) Validate(Action) ValidationResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.triggered {
		return Reject(ViolationEmergencyStop, 1.0,
			fmt.Sprintf("emergency stop engaged: %s", e.reason))
	}
	return Allow(1.0, "emergency stop armed")
}

// Trigger latches the stop. Re-triggering keeps the original reason.
func (e *EmergencyStop) Trigger(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.triggered {
		return
	}
	e.triggered = true
	e.reason = reason
	e.at = time.Now()
}

// Reset re-arms the latch. Administrative call only; no validation input
// reaches this.
func (e *EmergencyStop) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.triggered = false
	e.reason = ""
	e.at = time.Time{}
}

func (e *EmergencyStop) Triggered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.triggered
}

// Status reports the latch state for the audit report.
func (e *EmergencyStop) Status() (triggered bool, reason string, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.triggered, e.reason, e.at
}

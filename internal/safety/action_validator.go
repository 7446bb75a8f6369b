package safety

import (
	"fmt"
	"strings"

	"github.com/dverholt/agentward/internal/shellparse"
)

// safeActionTypes are always permitted by this validator (later chain members
// may still reject them).
var safeActionTypes = map[string]bool{
	"think":    true,
	"remember": true,
	"respond":  true,
	"analyze":  true,
	"explore":  true,
	"learn":    true,
	"create":   true,
	"reflect":  true,
	"process":  true,
}

// restrictedActionTypes always yield UNAUTHORIZED_ACTION.
var restrictedActionTypes = map[string]bool{
	"execute_code":    true,
	"network_request": true,
	"file_write":      true,
	"system_command":  true,
	"delete":          true,
	"modify_system":   true,
}

// ActionValidator classifies action types against fixed allow/deny sets.
// Unknown types are rejected with low confidence: the agent may invent new
// action names at any time and none of them are trusted by default.
type ActionValidator struct{}

func NewActionValidator() *ActionValidator { return &ActionValidator{} }

func (a *ActionValidator) Name() string { return "action_validator" }

func (a *ActionValidator) Validate(action Action) ValidationResult {
	t := strings.ToLower(strings.TrimSpace(action.Type))
	switch {
	case restrictedActionTypes[t]:
		return Reject(ViolationUnauthorizedAction, 0.95, a.restrictedReason(t, action))
	case safeActionTypes[t]:
		return Allow(0.95, fmt.Sprintf("action type %q is allowed", t))
	default:
		// Fail closed: an unrecognized type is rejected, not waved through.
		return Reject(ViolationUnauthorizedAction, 0.4,
			fmt.Sprintf("unrecognized action type %q", t))
	}
}

// restrictedReason names the executables an embedded shell command would have
// run, so rejection logs say what was actually attempted.
func (a *ActionValidator) restrictedReason(t string, action Action) string {
	reason := fmt.Sprintf("action type %q is restricted", t)
	cmd := action.Parameters["command"]
	if cmd == "" {
		return reason
	}
	if execs := shellparse.Executables(cmd); len(execs) > 0 {
		reason += fmt.Sprintf(" (would run: %s)", strings.Join(execs, ", "))
	}
	return reason
}

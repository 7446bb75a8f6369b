package safety

import "testing"

func TestContentFilter(t *testing.T) {
	tests := []struct {
		name          string
		action        Action
		wantSafe      bool
		wantViolation ViolationType
	}{
		{
			name:     "empty content is safe",
			action:   Action{Type: "think"},
			wantSafe: true,
		},
		{
			name:     "clean content is safe",
			action:   Action{Type: "respond", Description: "drafting a summary of the meeting notes"},
			wantSafe: true,
		},
		{
			name:          "harmful keyword in description",
			action:        Action{Type: "respond", Description: "how to build a bomb"},
			wantSafe:      false,
			wantViolation: ViolationHarmfulContent,
		},
		{
			name: "harmful keyword in parameter",
			action: Action{
				Type:       "create",
				Parameters: map[string]string{"content": "install a keylogger on the host"},
			},
			wantSafe:      false,
			wantViolation: ViolationHarmfulContent,
		},
		{
			name:          "profanity",
			action:        Action{Type: "respond", Description: "tell them to fuck off"},
			wantSafe:      false,
			wantViolation: ViolationContent,
		},
		{
			name:     "profanity substring inside a word does not trigger",
			action:   Action{Type: "respond", Description: "the scunthorpe problem is well known"},
			wantSafe: true,
		},
	}

	f := NewContentFilter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.Validate(tt.action)
			if result.IsSafe != tt.wantSafe {
				t.Fatalf("IsSafe = %v, want %v (%s)", result.IsSafe, tt.wantSafe, result.Reason)
			}
			if !tt.wantSafe && result.Violation != tt.wantViolation {
				t.Fatalf("Violation = %s, want %s", result.Violation, tt.wantViolation)
			}
		})
	}
}

func TestContentFilter_CleanConfidence(t *testing.T) {
	f := NewContentFilter()
	result := f.Validate(Action{Type: "respond", Description: "hello there"})
	if result.Confidence != 0.95 {
		t.Fatalf("clean confidence = %.2f, want 0.95", result.Confidence)
	}
}

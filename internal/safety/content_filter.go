package safety

import (
	"fmt"
	"strings"
)

// harmfulKeywords flag content that describes damage to people or systems.
var harmfulKeywords = []string{
	"kill", "murder", "suicide", "self-harm",
	"weapon", "bomb", "explosive",
	"malware", "ransomware", "spyware", "keylogger",
	"exploit", "backdoor", "rootkit",
	"steal credentials", "exfiltrate", "wipe disk",
}

// profanityWords is a deliberately small heuristic list; the filter is a
// coarse first pass, not a moderation system.
var profanityWords = []string{
	"fuck", "shit", "bitch", "asshole", "bastard",
}

// ContentFilter scans the free text attached to an action for harmful
// keywords and profanity. Deterministic and stateless.
type ContentFilter struct{}

func NewContentFilter() *ContentFilter { return &ContentFilter{} }

func (c *ContentFilter) Name() string { return "content_filter" }

// Validate checks the action's description, target, and string parameters.
// Empty content is always safe.
func (c *ContentFilter) Validate(action Action) ValidationResult {
	content := collectText(action)
	if content == "" {
		return Allow(0.95, "no content to inspect")
	}

	lower := strings.ToLower(content)
	for _, kw := range harmfulKeywords {
		if strings.Contains(lower, kw) {
			return Reject(ViolationHarmfulContent, 0.9,
				fmt.Sprintf("content matches harmful keyword %q", kw))
		}
	}
	for _, w := range profanityWords {
		if containsWord(lower, w) {
			return Reject(ViolationContent, 0.75,
				fmt.Sprintf("content contains profanity %q", w))
		}
	}
	return Allow(0.95, "content clean")
}

func collectText(action Action) string {
	parts := []string{action.Description, action.Target}
	for _, v := range action.Parameters {
		parts = append(parts, v)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// containsWord matches on word boundaries so that e.g. "scunthorpe"-style
// substrings do not trigger the profanity heuristic.
func containsWord(text, word string) bool {
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if field == word {
			return true
		}
	}
	return false
}

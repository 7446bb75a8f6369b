package sanitizer

import "regexp"

// threatPattern pairs a compiled regex with the severity it implies.
type threatPattern struct {
	name    string
	level   ThreatLevel
	pattern *regexp.Regexp
}

// threatPatterns is the fixed detection table. Ordering does not matter: the
// sanitizer takes the maximum severity across all matches.
var threatPatterns = []threatPattern{
	// Instruction override — the canonical injection, always critical.
	{"instruction-override", ThreatCritical,
		regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|directives?)`)},
	{"instruction-override", ThreatCritical,
		regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(instructions?|programming|training)`)},
	{"instruction-override", ThreatCritical,
		regexp.MustCompile(`(?i)forget\s+(everything|all)\s+(you\s+)?(know|learned|were\s+told)`)},

	// Role manipulation.
	{"role-manipulation", ThreatMedium,
		regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are|you're)`)},
	{"role-manipulation", ThreatMedium,
		regexp.MustCompile(`(?i)act\s+as\s+(if\s+you\s+(are|were)|a\s+different)`)},
	{"role-manipulation", ThreatHigh,
		regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|in)\s+\w+\s*(mode)?`)},
	{"role-manipulation", ThreatHigh,
		regexp.MustCompile(`(?i)(enable|enter|activate)\s+(developer|dan|jailbreak|god)\s+mode`)},

	// Command injection.
	{"command-injection", ThreatHigh,
		regexp.MustCompile(`(?i)(execute|run|eval)\s+(this\s+)?(command|code|script|shell)`)},
	{"command-injection", ThreatHigh,
		regexp.MustCompile("(?s)`[^`]*(rm|curl|wget|bash|sh|eval)[^`]*`")},
	{"command-injection", ThreatHigh,
		regexp.MustCompile(`\$\([^)]*\)`)},

	// Data exfiltration.
	{"data-exfiltration", ThreatHigh,
		regexp.MustCompile(`(?i)(reveal|show|print|display|repeat)\s+(me\s+)?(your|the)\s+(system\s+)?(prompt|instructions?|configuration)`)},
	{"data-exfiltration", ThreatHigh,
		regexp.MustCompile(`(?i)(send|post|upload|transmit)\s+.{0,40}(to|at)\s+https?://`)},
	{"data-exfiltration", ThreatHigh,
		regexp.MustCompile(`(?i)(list|dump|leak)\s+(all\s+)?(api\s+)?(keys?|secrets?|credentials?|passwords?)`)},

	// Encoding tricks.
	{"encoding", ThreatMedium,
		regexp.MustCompile(`(?i)(decode|execute|run)\s+(this\s+)?base64`)},
	{"encoding", ThreatMedium,
		regexp.MustCompile(`[A-Za-z0-9+/]{120,}={0,2}`)},
	{"encoding", ThreatMedium,
		regexp.MustCompile(`(\\x[0-9a-fA-F]{2}){8,}`)},

	// Markup injection.
	{"markup-injection", ThreatMedium,
		regexp.MustCompile(`(?i)<\s*(script|iframe|object|embed)[\s>]`)},
	{"markup-injection", ThreatMedium,
		regexp.MustCompile(`(?i)\[\s*(system|assistant|tool)\s*\]\s*:`)},
	{"markup-injection", ThreatMedium,
		regexp.MustCompile(`(?i)<\|?(im_start|im_end|system|endoftext)\|?>`)},
}

// contextSwitchPhrases flag attempts to re-frame an ongoing conversation.
// Matched against conversation context plus the current input.
var contextSwitchPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)new\s+(conversation|session|context)\s+(starts?|begins?)`),
	regexp.MustCompile(`(?i)(let's|lets)\s+start\s+(over|fresh|again)`),
	regexp.MustCompile(`(?i)from\s+now\s+on[,\s]`),
	regexp.MustCompile(`(?i)everything\s+(above|before)\s+(was|is)\s+(a\s+)?(test|joke|mistake)`),
}

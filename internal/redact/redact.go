// Package redact removes secret material from strings before they reach an
// audit trail. Everything the key store logs passes through here.
package redact

import "regexp"

var sensitivePatterns = []*regexp.Regexp{
	// key=value style assignments of credentials
	regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|access[_-]?token|auth[_-]?token|password|passwd|passphrase)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),

	// well-known token shapes
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{32,}`),
	regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9A-Za-z-]+`),

	// bearer tokens and basic-auth URLs
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]{20,}`),
	regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@`),

	// PEM private key headers
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),
}

const placeholder = "[REDACTED]"

// Redact replaces every recognized secret in input with a placeholder.
func Redact(input string) string {
	out := input
	for _, re := range sensitivePatterns {
		out = re.ReplaceAllString(out, placeholder)
	}
	return out
}

// Package unicode detects codepoints used for text smuggling: invisible
// characters, bidirectional overrides, tag characters, raw controls, and
// script homoglyphs. The prompt sanitizer runs this scan on all user text.
package unicode

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Finding describes one suspicious codepoint in the input.
type Finding struct {
	Category    string // "zero-width", "bidi-override", "tag-char", "control-char", "homoglyph", "invalid-utf8"
	Codepoint   string // "U+200B"
	Position    int    // byte offset
	Description string
}

// Result is the output of a scan. Sanitized is the input with every flagged
// codepoint removed.
type Result struct {
	Findings  []Finding
	Sanitized string
}

// Clean reports whether no suspicious codepoints were found.
func (r Result) Clean() bool { return len(r.Findings) == 0 }

// Scan inspects input for smuggling indicators and builds a sanitized copy.
func Scan(input string) Result {
	var res Result
	var sanitized strings.Builder
	sanitized.Grow(len(input))

	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])
		if r == utf8.RuneError && size == 1 {
			res.Findings = append(res.Findings, Finding{
				Category:    "invalid-utf8",
				Codepoint:   fmt.Sprintf("0x%02X", input[i]),
				Position:    i,
				Description: "invalid UTF-8 byte sequence",
			})
			i++
			continue
		}
		if f, suspicious := classify(r, i); suspicious {
			res.Findings = append(res.Findings, f)
			i += size
			continue
		}
		sanitized.WriteRune(r)
		i += size
	}

	res.Sanitized = sanitized.String()
	return res
}

func classify(r rune, pos int) (Finding, bool) {
	cp := fmt.Sprintf("U+%04X", r)
	switch {
	case zeroWidth[r]:
		return Finding{"zero-width", cp, pos,
			fmt.Sprintf("zero-width character %s can hide content from display", cp)}, true
	case bidiControl[r]:
		return Finding{"bidi-override", cp, pos,
			fmt.Sprintf("bidirectional control %s can make displayed text differ from processed text", cp)}, true
	case r >= 0xE0001 && r <= 0xE007F:
		return Finding{"tag-char", cp, pos,
			fmt.Sprintf("Unicode tag character %s can smuggle hidden instructions", cp)}, true
	case unsafeControl(r):
		return Finding{"control-char", cp, pos,
			fmt.Sprintf("control character %s has no place in conversational text", cp)}, true
	}
	if latin, ok := homoglyph(r); ok {
		return Finding{"homoglyph", cp, pos,
			fmt.Sprintf("%s visually imitates Latin '%c'", cp, latin)}, true
	}
	return Finding{}, false
}

var zeroWidth = map[rune]bool{
	'\u200B': true, // ZERO WIDTH SPACE
	'\u200C': true, // ZERO WIDTH NON-JOINER
	'\u200D': true, // ZERO WIDTH JOINER
	'\u200E': true, // LEFT-TO-RIGHT MARK
	'\u200F': true, // RIGHT-TO-LEFT MARK
	'\u2060': true, // WORD JOINER
	'\uFEFF': true, // ZERO WIDTH NO-BREAK SPACE (BOM)
	'\u180E': true, // MONGOLIAN VOWEL SEPARATOR
}

var bidiControl = map[rune]bool{
	'\u202A': true, // LEFT-TO-RIGHT EMBEDDING
	'\u202B': true, // RIGHT-TO-LEFT EMBEDDING
	'\u202C': true, // POP DIRECTIONAL FORMATTING
	'\u202D': true, // LEFT-TO-RIGHT OVERRIDE
	'\u202E': true, // RIGHT-TO-LEFT OVERRIDE
	'\u2066': true, // LEFT-TO-RIGHT ISOLATE
	'\u2067': true, // RIGHT-TO-LEFT ISOLATE
	'\u2068': true, // FIRST STRONG ISOLATE
	'\u2069': true, // POP DIRECTIONAL ISOLATE
}

// unsafeControl flags C0/C1 controls and DEL, keeping tab/newline/CR.
func unsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}

// homoglyph reports whether r is a Cyrillic or Greek character commonly used
// to impersonate a Latin letter.
func homoglyph(r rune) (rune, bool) {
	if unicode.Is(unicode.Cyrillic, r) {
		latin, ok := cyrillicConfusables[r]
		return latin, ok
	}
	if unicode.Is(unicode.Greek, r) {
		latin, ok := greekConfusables[r]
		return latin, ok
	}
	return 0, false
}

var cyrillicConfusables = map[rune]rune{
	'а': 'a', 'А': 'A', 'В': 'B', 'с': 'c', 'С': 'C',
	'е': 'e', 'Е': 'E', 'Н': 'H', 'і': 'i', 'І': 'I',
	'К': 'K', 'М': 'M', 'о': 'o', 'О': 'O', 'р': 'p',
	'Р': 'P', 'Т': 'T', 'х': 'x', 'Х': 'X', 'у': 'y', 'У': 'Y',
}

var greekConfusables = map[rune]rune{
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I',
	'Κ': 'K', 'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'ο': 'o',
	'Ρ': 'P', 'Τ': 'T', 'Υ': 'Y', 'Χ': 'X', 'Ζ': 'Z',
}

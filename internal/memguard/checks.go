package memguard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

const (
	maxContentLength    = 10000
	maxHarmfulDistinct  = 3
	maxSuspiciousRatio  = 0.3
	burstWindow         = time.Second
	burstLimit          = 5
	outOfOrderTolerance = 60 * time.Second
	minOverlapRatio     = 0.1
	recentSameType      = 5
)

var harmfulMemoryKeywords = []string{
	"kill", "destroy", "attack", "exploit", "malware", "virus",
	"steal", "weapon", "bomb", "poison", "sabotage", "backdoor",
}

var injectionPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+memories`),
	regexp.MustCompile(`(?i)forget\s+(everything|all\s+memories)`),
	regexp.MustCompile(`(?i)disregard\s+(prior|stored)\s+(memories|knowledge)`),
	regexp.MustCompile(`(?i)(inject|insert|plant)\s+(false|fake)\s+(data|memories)`),
	regexp.MustCompile(`(?i)new\s+core\s+directive`),
	regexp.MustCompile(`(?i)system\s+override`),
	regexp.MustCompile(`(?i)you\s+must\s+(now\s+)?believe`),
}

// checkContentSafety flags harmful-keyword density, oversized content, and a
// high ratio of suspicious characters. Returns true when the memory is
// invalid outright.
func (v *Validator) checkContentSafety(mem Memory, report *Report) bool {
	lower := strings.ToLower(mem.Content)

	distinct := 0
	for _, kw := range harmfulMemoryKeywords {
		if strings.Contains(lower, kw) {
			distinct++
		}
	}
	if distinct > maxHarmfulDistinct {
		addAnomaly(report, AnomalyPoisoning,
			fmt.Sprintf("harmful keyword density: %d distinct matches", distinct))
		return true
	}

	if len(mem.Content) > maxContentLength {
		addAnomaly(report, AnomalyPoisoning,
			fmt.Sprintf("content length %d exceeds %d", len(mem.Content), maxContentLength))
		return true
	}

	if len(mem.Content) > 0 {
		suspicious := 0
		total := 0
		for _, r := range mem.Content {
			total++
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) &&
				!strings.ContainsRune(`.,;:!?'"()-`, r) {
				suspicious++
			}
		}
		if ratio := float64(suspicious) / float64(total); ratio > maxSuspiciousRatio {
			addAnomaly(report, AnomalyPoisoning,
				fmt.Sprintf("suspicious character ratio %.2f", ratio))
			return true
		}
	}
	return false
}

// checkInjection matches the fixed phrase list against content and the
// serialized metadata. A hit forces at least SUSPICIOUS.
func (v *Validator) checkInjection(mem Memory, report *Report) {
	haystack := mem.Content + "\n" + serializeMetadata(mem.Metadata)
	for _, re := range injectionPhrases {
		if re.MatchString(haystack) {
			addAnomaly(report, AnomalyInjection,
				fmt.Sprintf("injection phrase matched: %s", re.String()))
			return
		}
	}
}

// checkTemporal flags future timestamps, creation bursts, and records that
// arrive far out of order.
func (v *Validator) checkTemporal(mem Memory, report *Report) {
	now := v.now()
	if mem.Timestamp.After(now.Add(time.Second)) {
		addAnomaly(report, AnomalyTemporal,
			fmt.Sprintf("timestamp %s is in the future", mem.Timestamp.Format(time.RFC3339)))
		return
	}

	inBurst := 0
	for _, o := range v.history {
		if d := mem.Timestamp.Sub(o.timestamp); d >= -burstWindow && d <= burstWindow {
			inBurst++
		}
	}
	if inBurst > burstLimit {
		addAnomaly(report, AnomalyTemporal,
			fmt.Sprintf("%d memories created within %s", inBurst, burstWindow))
		return
	}

	if !v.lastSeen.IsZero() && v.lastSeen.Sub(mem.Timestamp) > outOfOrderTolerance {
		addAnomaly(report, AnomalyTemporal,
			fmt.Sprintf("timestamp %s behind last seen memory", v.lastSeen.Sub(mem.Timestamp)))
	}
}

// checkConsistency compares topic overlap with the last few same-type
// memories. A near-zero overlap against a non-trivial recent topic set is an
// abrupt topical break.
func (v *Validator) checkConsistency(mem Memory, report *Report) {
	topics := extractTopics(mem.Content)
	if len(topics) == 0 {
		return
	}

	recent := map[string]bool{}
	seen := 0
	for i := len(v.history) - 1; i >= 0 && seen < recentSameType; i-- {
		if v.history[i].memType != mem.Type {
			continue
		}
		seen++
		for _, t := range v.history[i].topics {
			recent[t] = true
		}
	}
	if len(recent) < 3 {
		return // too little context to call anything inconsistent
	}

	overlap := 0
	for _, t := range topics {
		if recent[t] {
			overlap++
		}
	}
	if ratio := float64(overlap) / float64(len(topics)); ratio < minOverlapRatio {
		addAnomaly(report, AnomalyConsistency,
			fmt.Sprintf("topic overlap %.2f with recent %s memories", ratio, mem.Type))
	}
}

// checkRapidChange flags importance spikes and abrupt emotional reversals
// against a uniformly-signed recent window.
func (v *Validator) checkRapidChange(mem Memory, report *Report) {
	if len(v.history) == 0 {
		return
	}

	maxImportance := 0.0
	for _, o := range v.history {
		if o.importance > maxImportance {
			maxImportance = o.importance
		}
	}
	if maxImportance > 0 && mem.Importance > 2*maxImportance {
		addAnomaly(report, AnomalyRapidChange,
			fmt.Sprintf("importance %.2f more than doubles recent max %.2f", mem.Importance, maxImportance))
		return
	}

	cur := valence(mem.Content)
	if cur == 0 {
		return
	}
	uniform := 0
	for _, o := range v.history {
		if o.valence == 0 {
			return // mixed/neutral window, no reversal to call
		}
		uniform = o.valence
		if o.valence != v.history[0].valence {
			return
		}
	}
	if uniform != 0 && cur == -uniform {
		addAnomaly(report, AnomalyRapidChange, "abrupt emotional valence reversal")
	}
}

// checkSemanticDrift compares the memory type against the historically
// dominant type for its topics. When more than half the topics disagree, the
// record does not fit its claimed type.
func (v *Validator) checkSemanticDrift(mem Memory, report *Report) {
	topics := extractTopics(mem.Content)
	if len(topics) == 0 || len(v.history) == 0 {
		return
	}

	signature := map[string]map[string]int{}
	for _, o := range v.history {
		for _, t := range o.topics {
			if signature[t] == nil {
				signature[t] = map[string]int{}
			}
			signature[t][o.memType]++
		}
	}

	disagree := 0
	kno := 0
	for _, t := range topics {
		counts := signature[t]
		if len(counts) == 0 {
			continue
		}
		kno++
		if dominantType(counts) != mem.Type {
			disagree++
		}
	}
	if kno > 0 && disagree*2 > len(topics) {
		addAnomaly(report, AnomalyDrift,
			fmt.Sprintf("%d of %d topics historically belong to other memory types", disagree, len(topics)))
	}
}

// dominantType returns the memory type with the highest count. Ties break by
// name so the verdict is deterministic.
func dominantType(counts map[string]int) string {
	best := ""
	bestN := 0
	for t, n := range counts {
		if n > bestN || (n == bestN && (best == "" || t < best)) {
			best, bestN = t, n
		}
	}
	return best
}

// checkChecksum records a SHA-256 digest on first sight of an id and flags a
// mismatch on later validations of the same id. The stored digest is updated
// after a mismatch so the mutation is reported once, not forever.
func (v *Validator) checkChecksum(mem Memory, report *Report) {
	sum := Checksum(mem)
	prev, seen := v.checksums[mem.ID]
	v.checksums[mem.ID] = sum
	if seen && prev != sum {
		addAnomaly(report, AnomalyConsistency, "integrity checksum mismatch: memory mutated since last validation")
		report.Details = append(report.Details, "checksum_mismatch")
	}
}

// Checksum computes the integrity digest over content, type, importance, and
// sorted metadata.
func Checksum(mem Memory) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%.6f\x00", mem.Content, mem.Type, mem.Importance)
	keys := make([]string, 0, len(mem.Metadata))
	for k := range mem.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\x00", k, mem.Metadata[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func addAnomaly(report *Report, a AnomalyType, detail string) {
	for _, existing := range report.Anomalies {
		if existing == a {
			report.Details = append(report.Details, detail)
			return
		}
	}
	report.Anomalies = append(report.Anomalies, a)
	report.Details = append(report.Details, detail)
}

func serializeMetadata(md map[string]string) string {
	if len(md) == 0 {
		return ""
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s\n", k, md[k])
	}
	return sb.String()
}

var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"were": true, "been": true, "they": true, "their": true, "about": true,
	"would": true, "could": true, "should": true, "there": true, "which": true,
	"when": true, "what": true, "your": true, "will": true, "them": true,
}

// extractTopics pulls the distinct lowercase words of four or more letters,
// minus stopwords, capped at twelve.
func extractTopics(content string) []string {
	seen := map[string]bool{}
	var topics []string
	for _, f := range strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if len(f) < 4 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		topics = append(topics, f)
		if len(topics) == 12 {
			break
		}
	}
	return topics
}

var positiveWords = map[string]bool{
	"good": true, "great": true, "happy": true, "joy": true, "love": true,
	"success": true, "wonderful": true, "excellent": true, "calm": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "sad": true, "fear": true, "hate": true,
	"failure": true, "awful": true, "angry": true, "pain": true,
}

// valence is a crude sign-only sentiment: +1, -1, or 0.
func valence(content string) int {
	pos, neg := 0, 0
	for _, f := range strings.Fields(strings.ToLower(content)) {
		f = strings.Trim(f, ".,;:!?'\"()")
		if positiveWords[f] {
			pos++
		}
		if negativeWords[f] {
			neg++
		}
	}
	switch {
	case pos > neg:
		return 1
	case neg > pos:
		return -1
	default:
		return 0
	}
}

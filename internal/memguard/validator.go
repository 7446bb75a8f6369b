package memguard

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// observed is the per-memory state retained in the sliding history window.
type observed struct {
	id         string
	memType    string
	topics     []string
	importance float64
	valence    int // -1, 0, +1
	timestamp  time.Time
}

// Validator runs the anomaly checks and owns the quarantine store. All
// mutable state is per-instance and mutex-guarded.
type Validator struct {
	mu               sync.Mutex
	window           int     // consistency window
	threshold        float64 // risk score at or above this forces quarantine
	enableQuarantine bool
	history          []observed
	checksums        map[string]string
	quarantine       map[string]*Quarantined
	lastSeen         time.Time

	now func() time.Time // swappable for tests
}

// Options configures a Validator.
type Options struct {
	ConsistencyWindow int
	AnomalyThreshold  float64 // risk score (1 - confidence) that forces quarantine
	EnableQuarantine  bool
}

func New(opts Options) *Validator {
	if opts.ConsistencyWindow <= 0 {
		opts.ConsistencyWindow = 20
	}
	if opts.AnomalyThreshold <= 0 {
		opts.AnomalyThreshold = 0.5
	}
	return &Validator{
		window:           opts.ConsistencyWindow,
		threshold:        opts.AnomalyThreshold,
		enableQuarantine: opts.EnableQuarantine,
		checksums:        make(map[string]string),
		quarantine:       make(map[string]*Quarantined),
		now:              time.Now,
	}
}

// ValidateMemory runs all checks against mem and returns a report. The memory
// is appended to the history window afterwards, so validating the same record
// twice is stable (in particular, the checksum check records on first sight
// and only flags genuine mutations).
func (v *Validator) ValidateMemory(mem Memory) Report {
	v.mu.Lock()
	defer v.mu.Unlock()

	report := Report{
		MemoryID:  mem.ID,
		Result:    ResultValid,
		Timestamp: v.now(),
	}

	hardInvalid := v.checkContentSafety(mem, &report)
	v.checkInjection(mem, &report)
	v.checkTemporal(mem, &report)
	v.checkConsistency(mem, &report)
	v.checkRapidChange(mem, &report)
	v.checkSemanticDrift(mem, &report)
	v.checkChecksum(mem, &report)

	report.Confidence = 1.0
	for _, a := range report.Anomalies {
		report.Confidence *= 1.0 - anomalyWeights[a]
	}

	switch {
	case hardInvalid:
		report.Result = ResultInvalid
	case len(report.Anomalies) > 0:
		report.Result = ResultSuspicious
	}

	if v.enableQuarantine && v.shouldQuarantine(report) {
		v.quarantine[mem.ID] = &Quarantined{
			Memory:     mem,
			Reason:     fmt.Sprintf("quarantined: %s", joinAnomalies(report.Anomalies)),
			DetectedAt: report.Timestamp,
			Anomalies:  append([]AnomalyType(nil), report.Anomalies...),
			RiskScore:  1.0 - report.Confidence,
		}
		report.Result = ResultQuarantined
	}

	v.observe(mem)
	return report
}

// shouldQuarantine: always on injection; when at least two anomalies from the
// poisoning/consistency/temporal group co-occur; or when the combined risk
// score reaches the configured anomaly threshold.
func (v *Validator) shouldQuarantine(report Report) bool {
	grave := 0
	for _, a := range report.Anomalies {
		switch a {
		case AnomalyInjection:
			return true
		case AnomalyPoisoning, AnomalyConsistency, AnomalyTemporal:
			grave++
		}
	}
	if grave >= 2 {
		return true
	}
	return len(report.Anomalies) > 0 && 1.0-report.Confidence >= v.threshold
}

// observe appends mem to the history window, trimming to the window size once
// it grows past twice the window.
func (v *Validator) observe(mem Memory) {
	v.history = append(v.history, observed{
		id:         mem.ID,
		memType:    mem.Type,
		topics:     extractTopics(mem.Content),
		importance: mem.Importance,
		valence:    valence(mem.Content),
		timestamp:  mem.Timestamp,
	})
	if len(v.history) > 2*v.window {
		v.history = v.history[len(v.history)-v.window:]
	}
	if mem.Timestamp.After(v.lastSeen) {
		v.lastSeen = mem.Timestamp
	}
}

// ReleaseFromQuarantine removes and returns the original memory.
func (v *Validator) ReleaseFromQuarantine(id string) (Memory, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	q, ok := v.quarantine[id]
	if !ok {
		return Memory{}, false
	}
	delete(v.quarantine, id)
	return q.Memory, true
}

// ClearQuarantine drops every quarantined record. Administrative, logged.
func (v *Validator) ClearQuarantine() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := len(v.quarantine)
	v.quarantine = make(map[string]*Quarantined)
	log.Printf("memguard: quarantine cleared, %d records dropped", n)
	return n
}

// Summary reports the current quarantine contents without exposing memory
// content.
func (v *Validator) Summary() QuarantineSummary {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := QuarantineSummary{Count: len(v.quarantine)}
	for _, q := range v.quarantine {
		if s.OldestDetectedAt.IsZero() || q.DetectedAt.Before(s.OldestDetectedAt) {
			s.OldestDetectedAt = q.DetectedAt
		}
		s.Entries = append(s.Entries, QuarantineEntry{
			MemoryID:   q.Memory.ID,
			Reason:     q.Reason,
			RiskScore:  q.RiskScore,
			DetectedAt: q.DetectedAt,
		})
	}
	return s
}

func joinAnomalies(as []AnomalyType) string {
	out := ""
	for i, a := range as {
		if i > 0 {
			out += ", "
		}
		out += string(a)
	}
	return out
}

// Package memguard validates persisted memory records before they influence
// future behavior. Seven independent checks flag anomalies; suspicious
// records can be quarantined and are excluded from recall until released.
package memguard

import (
	"time"
)

// Memory is a record owned by the external memory store. This package only
// reads it.
type Memory struct {
	ID         string
	Content    string
	Type       string // e.g. "episodic", "semantic", "procedural"
	Importance float64
	Embedding  []float64
	Metadata   map[string]string
	Timestamp  time.Time
}

// AnomalyType tags one class of detected anomaly.
type AnomalyType string

const (
	AnomalyPoisoning   AnomalyType = "MEMORY_POISONING"
	AnomalyInjection   AnomalyType = "CONTENT_INJECTION"
	AnomalyTemporal    AnomalyType = "TEMPORAL_ANOMALY"
	AnomalyConsistency AnomalyType = "CONSISTENCY_VIOLATION"
	AnomalyRapidChange AnomalyType = "RAPID_CHANGE"
	AnomalyDrift       AnomalyType = "SEMANTIC_DRIFT"
)

// anomalyWeights drive the confidence product: confidence = Π (1 - weight)
// over detected anomalies.
var anomalyWeights = map[AnomalyType]float64{
	AnomalyPoisoning:   0.5,
	AnomalyInjection:   0.5,
	AnomalyTemporal:    0.4,
	AnomalyConsistency: 0.3,
	AnomalyRapidChange: 0.2,
	AnomalyDrift:       0.2,
}

// ResultCode is the overall verdict for one memory.
type ResultCode string

const (
	ResultValid       ResultCode = "VALID"
	ResultSuspicious  ResultCode = "SUSPICIOUS"
	ResultInvalid     ResultCode = "INVALID"
	ResultQuarantined ResultCode = "QUARANTINED"
)

// Report is the outcome of validating one memory.
type Report struct {
	MemoryID   string
	Result     ResultCode
	Anomalies  []AnomalyType
	Confidence float64
	Details    []string
	Timestamp  time.Time
}

// Quarantined holds a memory suspected of poisoning together with why it was
// held. Destroyed only by Release or the administrative Clear.
type Quarantined struct {
	Memory     Memory
	Reason     string
	DetectedAt time.Time
	Anomalies  []AnomalyType
	RiskScore  float64
}

// QuarantineSummary is the aggregate view exposed to the audit report.
type QuarantineSummary struct {
	Count            int
	OldestDetectedAt time.Time
	Entries          []QuarantineEntry
}

// QuarantineEntry is one row of the summary; the memory content itself stays
// inside the quarantine store.
type QuarantineEntry struct {
	MemoryID   string
	Reason     string
	RiskScore  float64
	DetectedAt time.Time
}

package gatekeeper

import (
	"fmt"
	"time"

	"github.com/dverholt/agentward/internal/memguard"
	"github.com/dverholt/agentward/internal/safety"
)

// AuditReport aggregates the state of every validation surface.
type AuditReport struct {
	GeneratedAt          time.Time                  `json:"generated_at"`
	EmergencyStopEngaged bool                       `json:"emergency_stop_engaged"`
	Metrics              safety.Metrics             `json:"metrics"`
	ThreatStats          map[string]int             `json:"threat_stats"`
	Quarantine           memguard.QuarantineSummary `json:"quarantine"`
	KeysStored           int                        `json:"keys_stored"`
	KeysNeedingRotation  int                        `json:"keys_needing_rotation"`
	Incidents            []Incident                 `json:"incidents,omitempty"`
	Recommendations      []string                   `json:"recommendations"`
}

// PerformSecurityAudit snapshots validator metrics, threat statistics, the
// quarantine, and key-rotation state, and derives textual recommendations.
func (g *Gatekeeper) PerformSecurityAudit() AuditReport {
	g.mu.Lock()
	incidents := append([]Incident(nil), g.incidents...)
	g.mu.Unlock()

	report := AuditReport{
		GeneratedAt:          time.Now(),
		EmergencyStopEngaged: g.framework.EmergencyStopEngaged(),
		Metrics:              g.framework.Metrics(),
		ThreatStats:          g.sanitizer.Stats(),
		Quarantine:           g.memory.Summary(),
		KeysStored:           len(g.keys.List()),
		KeysNeedingRotation:  g.keys.RotationDue(),
		Incidents:            incidents,
	}
	report.Recommendations = recommendations(report)
	return report
}

// recommendations turns report numbers into operator-facing advice.
func recommendations(r AuditReport) []string {
	var recs []string
	if r.EmergencyStopEngaged {
		recs = append(recs, "emergency stop is engaged; investigate the incident log before resetting")
	}
	if r.Metrics.TotalValidations > 0 {
		ratio := float64(r.Metrics.ViolationsCount) / float64(r.Metrics.TotalValidations)
		if ratio > 0.25 {
			recs = append(recs, fmt.Sprintf("violation ratio %.0f%% is high; review recent violation history for a common source", ratio*100))
		}
	}
	if r.KeysNeedingRotation > 0 {
		recs = append(recs, fmt.Sprintf("%d key(s) past their rotation window; rotate them", r.KeysNeedingRotation))
	}
	if r.Quarantine.Count > 0 {
		recs = append(recs, fmt.Sprintf("%d memory record(s) in quarantine; review and release or purge", r.Quarantine.Count))
	}
	if critical := r.ThreatStats["CRITICAL"]; critical > 0 {
		recs = append(recs, fmt.Sprintf("%d critical prompt threat(s) seen; consider enabling strict mode", critical))
	}
	if len(recs) == 0 {
		recs = append(recs, "no issues detected")
	}
	return recs
}

// Package gatekeeper is the composition root: it wires the prompt sanitizer,
// the constitutional validator, the validator chain, the memory validator,
// and the key store behind one validation API.
//
// Control flow:
//
//	text input   → sanitizer → constitution → validator chain
//	memory input → memguard → quarantine decision
//	credentials  → keystore (independent of the other two flows)
package gatekeeper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dverholt/agentward/internal/config"
	"github.com/dverholt/agentward/internal/constitution"
	"github.com/dverholt/agentward/internal/keystore"
	"github.com/dverholt/agentward/internal/memguard"
	"github.com/dverholt/agentward/internal/safety"
	"github.com/dverholt/agentward/internal/sanitizer"
)

// EventEmergency is published on the orchestrator for incident responses.
const EventEmergency = "security.emergency"

// Incident is one recorded emergency security response.
type Incident struct {
	ID         string    `json:"id"`
	ThreatType string    `json:"threat_type"`
	Details    string    `json:"details"`
	At         time.Time `json:"at"`
}

// Gatekeeper owns every validation surface. One instance per agent process.
type Gatekeeper struct {
	framework    *safety.Framework
	sanitizer    *sanitizer.Sanitizer
	constitution *constitution.Validator
	memory       *memguard.Validator
	keys         *keystore.Manager
	rate         *safety.RateLimiter
	orch         safety.Orchestrator

	mu        sync.Mutex
	incidents []Incident
	incPath   string
}

// New builds a gatekeeper from configuration. orch may be nil (events are
// then only logged); backend may be nil (constitution runs rules only).
func New(cfg *config.Config, orch safety.Orchestrator, backend constitution.Backend) (*Gatekeeper, error) {
	estop := safety.NewEmergencyStop()
	rate := safety.NewRateLimiter(
		cfg.Security.RateLimit.MaxRequests,
		time.Duration(cfg.Security.RateLimit.WindowSeconds*float64(time.Second)),
	)
	// Chain order is part of the contract and must not change: the emergency
	// latch runs first, rate accounting last. A rejected action never
	// consumes window budget.
	chain := []safety.Validator{
		estop,
		safety.NewContentFilter(),
		safety.NewActionValidator(),
		rate,
	}

	keys, err := keystore.Open(keystore.Options{
		Dir:            cfg.KeyStorageDir(),
		Passphrase:     cfg.Security.MasterPassphrase,
		AutoRotateDays: cfg.Security.KeyRotationDays,
	})
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: open keystore: %w", err)
	}

	return &Gatekeeper{
		framework: safety.NewFramework(chain, cfg.Constraints, estop, orch),
		sanitizer: sanitizer.New(sanitizer.Options{
			MaxLength:  cfg.Security.MaxPromptLength,
			StrictMode: cfg.Security.StrictMode,
		}),
		constitution: constitution.New(backend),
		memory: memguard.New(memguard.Options{
			ConsistencyWindow: cfg.Security.ConsistencyWindow,
			AnomalyThreshold:  cfg.Security.AnomalyThreshold,
			EnableQuarantine:  cfg.Security.EnableQuarantine,
		}),
		keys:    keys,
		rate:    rate,
		orch:    orch,
		incPath: filepath.Join(cfg.ConfigDir, "incidents.jsonl"),
	}, nil
}

// Start launches background maintenance (rate-limiter key cleanup) until ctx
// is cancelled.
func (g *Gatekeeper) Start(ctx context.Context) {
	go g.rate.RunCleanup(ctx, time.Minute)
}

// ValidateAction judges a candidate action against the validator chain.
func (g *Gatekeeper) ValidateAction(ctx context.Context, action safety.Action) safety.ValidationResult {
	return g.framework.ValidateAction(ctx, action)
}

// ValidateUserInput runs the full text pipeline. A *sanitizer.SecurityError
// is returned for threats that must abort processing; all other rejections
// come back as a plain result.
func (g *Gatekeeper) ValidateUserInput(ctx context.Context, text string, sctx *sanitizer.Context) (safety.ValidationResult, error) {
	res, err := g.sanitizer.Sanitize(text, sctx)
	if err != nil {
		return safety.Reject(safety.ViolationCritical, 0.99,
			fmt.Sprintf("prompt threat (%s): %v", res.ThreatLevel, err)), err
	}
	if !res.IsSafe {
		return safety.Reject(safety.ViolationContent, 0.9,
			fmt.Sprintf("prompt threat level %s: %v", res.ThreatLevel, res.DetectedPatterns)), nil
	}

	if !g.constitution.Validate(ctx, res.SanitizedInput) {
		rule := g.constitution.FailedRule(res.SanitizedInput)
		if rule == "" {
			rule = "semantic-backend"
		}
		return safety.Reject(safety.ViolationContent, 0.9,
			fmt.Sprintf("constitutional principle violated: %s", rule)), nil
	}

	action := safety.Action{
		Type:        "respond",
		Description: res.SanitizedInput,
		Context:     map[string]string{},
	}
	if sctx != nil && sctx.UserID != "" {
		action.Context["request_id"] = sctx.UserID
	}
	return g.framework.ValidateAction(ctx, action), nil
}

// ValidateMemory judges one memory record; quarantined records are retained
// inside the memory validator until released.
func (g *Gatekeeper) ValidateMemory(ctx context.Context, mem memguard.Memory) memguard.Report {
	if err := ctx.Err(); err != nil {
		return memguard.Report{
			MemoryID:  mem.ID,
			Result:    memguard.ResultSuspicious,
			Details:   []string{fmt.Sprintf("validation cancelled: %v", err)},
			Timestamp: time.Now(),
		}
	}
	return g.memory.ValidateMemory(mem)
}

// Key management passthroughs.

func (g *Gatekeeper) StoreAPIKey(ctx context.Context, id, value, keyType, description string, expiresInDays int) error {
	return g.keys.Store(ctx, id, value, keyType, description, expiresInDays)
}

func (g *Gatekeeper) GetAPIKey(ctx context.Context, id, accessor string) (string, error) {
	return g.keys.Get(ctx, id, accessor)
}

func (g *Gatekeeper) RotateKey(ctx context.Context, id, newValue string) error {
	return g.keys.Rotate(ctx, id, newValue)
}

func (g *Gatekeeper) DeleteKey(ctx context.Context, id string) error {
	return g.keys.Delete(ctx, id)
}

func (g *Gatekeeper) ListKeys() []keystore.Metadata {
	return g.keys.List()
}

func (g *Gatekeeper) KeyAuditLog(keyID string, limit int) ([]keystore.AuditEntry, error) {
	return g.keys.AuditLog(keyID, limit)
}

// Memory quarantine passthroughs.

func (g *Gatekeeper) ReleaseFromQuarantine(id string) (memguard.Memory, bool) {
	return g.memory.ReleaseFromQuarantine(id)
}

func (g *Gatekeeper) QuarantineSummary() memguard.QuarantineSummary {
	return g.memory.Summary()
}

// ResetEmergencyStop re-arms the latch. Administrative.
func (g *Gatekeeper) ResetEmergencyStop() {
	g.framework.ResetEmergencyStop()
}

// EmergencySecurityResponse trips the emergency stop, purges cached key
// plaintext, records the incident, and publishes security.emergency.
func (g *Gatekeeper) EmergencySecurityResponse(threatType, details string) Incident {
	inc := Incident{
		ID:         uuid.NewString(),
		ThreatType: threatType,
		Details:    details,
		At:         time.Now(),
	}

	g.framework.TriggerEmergencyStop(fmt.Sprintf("emergency response: %s", threatType))
	g.keys.PurgeCache()

	g.mu.Lock()
	g.incidents = append(g.incidents, inc)
	g.mu.Unlock()
	g.persistIncident(inc)

	if g.orch != nil {
		g.orch.Publish(EventEmergency, map[string]any{
			"incident_id": inc.ID,
			"threat_type": threatType,
			"details":     details,
		})
	}
	log.Printf("gatekeeper: emergency security response %s (%s)", inc.ID, threatType)
	return inc
}

// persistIncident appends the incident to the JSONL log; a write failure is
// logged but does not block the response.
func (g *Gatekeeper) persistIncident(inc Incident) {
	f, err := os.OpenFile(g.incPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		log.Printf("gatekeeper: incident log open: %v", err)
		return
	}
	defer f.Close()
	data, err := json.Marshal(inc)
	if err != nil {
		log.Printf("gatekeeper: incident encode: %v", err)
		return
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("gatekeeper: incident write: %v", err)
	}
}

// Close releases held resources (keystore audit handle).
func (g *Gatekeeper) Close() error {
	return g.keys.Close()
}

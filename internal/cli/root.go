// Package cli implements the agentward command-line interface, an operator
// surface over the validation subsystem.
package cli

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/dverholt/agentward/internal/config"
	"github.com/dverholt/agentward/internal/gatekeeper"
	"github.com/dverholt/agentward/internal/safety"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "agentward",
	Short: "agentward - safety and security gatekeeper for autonomous agents",
	Long: `agentward validates agent actions, user text, memory records, and
credential operations before they take effect: a validator chain with an
emergency-stop latch, a prompt-injection sanitizer, a memory anomaly detector
with quarantine, and an encrypted API key store.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default: ~/.agentward/config.yaml)")
}

func Execute() error {
	return rootCmd.Execute()
}

// buildGatekeeper loads config and wires a gatekeeper with a log-only
// orchestrator. Callers must Close it.
func buildGatekeeper() (*gatekeeper.Gatekeeper, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	gk, err := gatekeeper.New(cfg, logOrchestrator{}, nil)
	if err != nil {
		return nil, nil, err
	}
	return gk, cfg, nil
}

// logOrchestrator is the CLI stand-in for the real message-routing layer.
type logOrchestrator struct{}

func (logOrchestrator) EmergencyStop(reason string) {
	log.Printf("orchestrator: emergency stop: %s", reason)
}

func (logOrchestrator) Publish(event string, payload map[string]any) {
	log.Printf("orchestrator: event %s: %v", event, payload)
}

var _ safety.Orchestrator = logOrchestrator{}

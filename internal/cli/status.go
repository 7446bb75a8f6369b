package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dverholt/agentward/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and storage health",
	RunE:  statusCommand,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Printf("agentward %s\n\n", Version)
	fmt.Printf("  Config dir:    %s\n", cfg.ConfigDir)
	fmt.Printf("  Strict mode:   %v\n", cfg.Security.StrictMode)
	fmt.Printf("  Rate limit:    %d per %.0fs\n", cfg.Security.RateLimit.MaxRequests, cfg.Security.RateLimit.WindowSeconds)
	fmt.Printf("  Quarantine:    %v (window %d)\n", cfg.Security.EnableQuarantine, cfg.Security.ConsistencyWindow)
	fmt.Println()

	fmt.Printf("  Constraints (%d):\n", len(cfg.Constraints))
	for _, c := range cfg.Constraints {
		state := "enabled"
		if !c.Enabled {
			state = "disabled"
		}
		fmt.Printf("    %-20s %-8s %s\n", c.Name, c.Severity, state)
	}
	fmt.Println()

	keysDir := cfg.KeyStorageDir()
	fmt.Printf("  Key storage:   %s\n", keysDir)
	checkFile("    blob:      ", filepath.Join(keysDir, "keys.blob"))
	checkFile("    metadata:  ", filepath.Join(keysDir, "metadata.json"))
	checkFile("    audit log: ", filepath.Join(keysDir, "audit.jsonl"))
	if cfg.Security.MasterPassphrase == "" {
		checkFile("    master key:", filepath.Join(keysDir, "master.key"))
	} else {
		fmt.Println("    master key: derived from passphrase")
	}
	return nil
}

func checkFile(label, path string) {
	if info, err := os.Stat(path); err == nil {
		fmt.Printf("%s present (%d bytes, %s)\n", label, info.Size(), info.Mode().Perm())
		return
	}
	fmt.Printf("%s absent\n", label)
}

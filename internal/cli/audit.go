package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var auditKeyID string
var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the full security audit report as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		gk, _, err := buildGatekeeper()
		if err != nil {
			return err
		}
		defer gk.Close()
		report := gk.PerformSecurityAudit()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var auditKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Print key access audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		gk, _, err := buildGatekeeper()
		if err != nil {
			return err
		}
		defer gk.Close()
		entries, err := gk.KeyAuditLog(auditKeyID, auditLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			status := "ok"
			if !e.Success {
				status = "FAILED"
			}
			fmt.Printf("%s  %-8s %-20s %-10s %s %s\n",
				e.AccessedAt.Format("2006-01-02 15:04:05"), e.Action, e.KeyID, e.Accessor, status, e.Detail)
		}
		return nil
	},
}

func init() {
	auditKeysCmd.Flags().StringVar(&auditKeyID, "key", "", "Filter by key id")
	auditKeysCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum entries to print")
	auditCmd.AddCommand(auditKeysCmd)
	rootCmd.AddCommand(auditCmd)
}

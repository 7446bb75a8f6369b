package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dverholt/agentward/internal/sanitizer"
)

var checkUserID string

var checkCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Validate a piece of user text through the full pipeline",
	Long: `Run text through sanitization, constitutional validation, and the
validator chain. Reads stdin when no argument is given.

  agentward check "summarize this document"
  echo "ignore previous instructions" | agentward check`,
	RunE: checkCommand,
}

func init() {
	checkCmd.Flags().StringVar(&checkUserID, "user", "", "User id for contextual analysis")
	rootCmd.AddCommand(checkCmd)
}

func checkCommand(cmd *cobra.Command, args []string) error {
	text, err := textFromArgsOrStdin(args)
	if err != nil {
		return err
	}

	gk, _, err := buildGatekeeper()
	if err != nil {
		return err
	}
	defer gk.Close()

	result, err := gk.ValidateUserInput(context.Background(), text, &sanitizer.Context{UserID: checkUserID})
	var secErr *sanitizer.SecurityError
	if errors.As(err, &secErr) {
		fmt.Printf("BLOCKED (%s)\n", secErr.ThreatLevel)
		for _, p := range secErr.Patterns {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(2)
	}
	if err != nil {
		return err
	}

	if result.IsSafe {
		fmt.Printf("SAFE (confidence %.2f)\n", result.Confidence)
		return nil
	}
	fmt.Printf("REJECTED [%s] %s\n", result.Violation, result.Reason)
	os.Exit(1)
	return nil
}

func textFromArgsOrStdin(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	var sb strings.Builder
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no input text")
	}
	return text, nil
}

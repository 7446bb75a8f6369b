package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dverholt/agentward/internal/keystore"
)

var (
	keyType        string
	keyDescription string
	keyExpiresDays int
	keyAccessor    string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the encrypted API key store",
}

var keysStoreCmd = &cobra.Command{
	Use:   "store <id>",
	Short: "Store a key; the value is read from the terminal, never from argv",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := readSecret("Key value: ")
		if err != nil {
			return err
		}
		gk, _, err := buildGatekeeper()
		if err != nil {
			return err
		}
		defer gk.Close()
		if err := gk.StoreAPIKey(context.Background(), args[0], value, keyType, keyDescription, keyExpiresDays); err != nil {
			return err
		}
		fmt.Printf("stored %s\n", args[0])
		return nil
	},
}

var keysGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Retrieve a key value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gk, _, err := buildGatekeeper()
		if err != nil {
			return err
		}
		defer gk.Close()
		value, err := gk.GetAPIKey(context.Background(), args[0], keyAccessor)
		switch {
		case errors.Is(err, keystore.ErrExpired):
			fmt.Fprintf(os.Stderr, "key %s is expired\n", args[0])
			os.Exit(1)
		case errors.Is(err, keystore.ErrNotFound):
			fmt.Fprintf(os.Stderr, "key %s not found\n", args[0])
			os.Exit(1)
		case err != nil:
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var keysRotateCmd = &cobra.Command{
	Use:   "rotate <id>",
	Short: "Replace a key value under a fresh ciphertext",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := readSecret("New key value: ")
		if err != nil {
			return err
		}
		gk, _, err := buildGatekeeper()
		if err != nil {
			return err
		}
		defer gk.Close()
		if err := gk.RotateKey(context.Background(), args[0], value); err != nil {
			return err
		}
		fmt.Printf("rotated %s\n", args[0])
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a key and its metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gk, _, err := buildGatekeeper()
		if err != nil {
			return err
		}
		defer gk.Close()
		if err := gk.DeleteKey(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List key metadata (never values)",
	RunE: func(cmd *cobra.Command, args []string) error {
		gk, cfg, err := buildGatekeeper()
		if err != nil {
			return err
		}
		defer gk.Close()
		keys := gk.ListKeys()
		if len(keys) == 0 {
			fmt.Println("no keys stored")
			return nil
		}
		for _, md := range keys {
			line := fmt.Sprintf("%-20s type=%-10s created=%s accesses=%d",
				md.KeyID, md.KeyType, md.CreatedAt.Format("2006-01-02"), md.AccessCount)
			if md.ExpiresAt != nil {
				line += " expires=" + md.ExpiresAt.Format("2006-01-02")
			}
			rotateAfter := daysToDuration(cfg.Security.KeyRotationDays)
			if md.NeedsRotation(rotateAfter, nowUTC()) {
				line += " NEEDS-ROTATION"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	keysStoreCmd.Flags().StringVar(&keyType, "type", "api", "Key type label")
	keysStoreCmd.Flags().StringVar(&keyDescription, "desc", "", "Key description")
	keysStoreCmd.Flags().IntVar(&keyExpiresDays, "expires-days", 0, "Days until expiry (0 = never)")
	keysGetCmd.Flags().StringVar(&keyAccessor, "accessor", "cli", "Accessor name recorded in the audit log")
	keysCmd.AddCommand(keysStoreCmd, keysGetCmd, keysRotateCmd, keysDeleteCmd, keysListCmd)
	rootCmd.AddCommand(keysCmd)
}

func daysToDuration(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

func nowUTC() time.Time { return time.Now().UTC() }

// readSecret prompts on the terminal without echo. A non-interactive stdin is
// an error: secrets do not travel through argv or pipelines here.
func readSecret(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("refusing to read a secret from a non-terminal stdin")
	}
	fmt.Fprint(os.Stderr, prompt)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(value) == 0 {
		return "", fmt.Errorf("empty value")
	}
	return string(value), nil
}

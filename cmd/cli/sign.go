package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	keyforgeclient "github.com/keyforge/keyforge/sdk/go/keyforgeclient"
)

func init() {
	signCmd := &cobra.Command{
		Use:   "sign <key-id>",
		Short: "Compute a request signature for manual testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			ts, _ := cmd.Flags().GetInt64("timestamp")
			if ts == 0 {
				ts = time.Now().Unix()
			}

			sig := keyforgeclient.Sign(args[0], secret, ts)
			fmt.Printf("timestamp: %d\nsignature: %s\n", ts, sig)
			return nil
		},
	}
	signCmd.Flags().String("secret", "", "shared secret for the key")
	signCmd.Flags().Int64("timestamp", 0, "unix timestamp to sign (default: now)")

	validateCmd := &cobra.Command{
		Use:   "validate <key-id>",
		Short: "Sign and validate against the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}

			result, err := newClient().Validate(cmd.Context(), args[0], secret)
			if err != nil {
				return err
			}
			fmt.Printf("valid: %t cached: %t\n", result.Valid, result.Cached)
			return nil
		},
	}
	validateCmd.Flags().String("secret", "", "shared secret for the key")

	rootCmd.AddCommand(signCmd, validateCmd)
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys",
	}

	createCmd := &cobra.Command{
		Use:   "create <key-id>",
		Short: "Create a new API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			metaPairs, _ := cmd.Flags().GetStringSlice("meta")
			metadata := make(map[string]string, len(metaPairs))
			for _, pair := range metaPairs {
				k, v, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("invalid --meta entry %q, want key=value", pair)
				}
				metadata[k] = v
			}

			key, err := newClient().CreateKey(cmd.Context(), args[0], secret, metadata)
			if err != nil {
				return err
			}
			return printJSON(key)
		},
	}
	createCmd.Flags().String("secret", "", "shared secret for the key")
	createCmd.Flags().StringSlice("meta", nil, "metadata entries, key=value")

	revokeCmd := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			revoked, err := newClient().RevokeKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !revoked {
				fmt.Println("key was already revoked")
				return nil
			}
			fmt.Println("key revoked")
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key-id>",
		Short: "Show one API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := newClient().GetKey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(key)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			activeOnly, _ := cmd.Flags().GetBool("active")
			keys, err := newClient().ListKeys(cmd.Context(), activeOnly)
			if err != nil {
				return err
			}
			return printJSON(keys)
		},
	}
	listCmd.Flags().Bool("active", false, "list only active keys")

	keyCmd.AddCommand(createCmd, revokeCmd, getCmd, listCmd)
	rootCmd.AddCommand(keyCmd)

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := newClient().AuditLog(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(entries)
		},
	}
	rootCmd.AddCommand(auditCmd)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

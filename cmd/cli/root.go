// Package cli implements the keyforge-admin command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	keyforgeclient "github.com/keyforge/keyforge/sdk/go/keyforgeclient"
)

var (
	serverURL  string
	adminToken string
)

var rootCmd = &cobra.Command{
	Use:   "keyforge-admin",
	Short: "Admin CLI for the keyforge service",
	Long: `keyforge-admin performs administrative tasks against a running keyforge
server: creating and revoking API keys, inspecting the audit trail, and
computing request signatures for manual testing.`,
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "keyforge server base URL")
	rootCmd.PersistentFlags().StringVar(&adminToken, "token", os.Getenv("KEYFORGE_ADMIN_TOKEN"), "admin bearer token")
}

func newClient() *keyforgeclient.Client {
	var opts []keyforgeclient.Option
	if adminToken != "" {
		opts = append(opts, keyforgeclient.WithAdminToken(adminToken))
	}
	return keyforgeclient.New(serverURL, opts...)
}

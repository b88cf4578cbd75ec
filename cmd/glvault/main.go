package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/genlayer/glvault/pkg/security"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "glvault",
	Short: "glvault - API-key vault and request-relaying proxy",
	Long: `glvault holds third-party API credentials on behalf of callers that
cannot be trusted to hold them, authenticates each relayed request by
HMAC, injects the credential inside the vault process, and returns a
sanitized response. Credentials at rest are encrypted under a single
master key and never appear in transit between vault and caller.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"glvault version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(signCmd)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a fresh master encryption key",
	Long: `Generate a 64-character hex key suitable for MASTER_ENCRYPTION_KEY.

The key is printed once and never stored; losing it makes every
registered credential unrecoverable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := security.GenerateMasterKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %v", err)
		}
		fmt.Println(key)
		return nil
	},
}

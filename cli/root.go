// Package cli implements globectl, the operator tool for key material,
// admin credentials and schema migration.
package cli

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the globectl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "globectl",
		Short:         "Operator tool for the globesuggest API",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	root.AddCommand(
		newKeygenCmd(),
		newHashPasswordCmd(),
		newTokenCmd(),
		newMigrateCmd(),
		newSealCmd(),
	)
	return root
}

func envOr(flagVal, key string) string {
	if flagVal != "" {
		return flagVal
	}
	return strings.TrimSpace(os.Getenv(key))
}

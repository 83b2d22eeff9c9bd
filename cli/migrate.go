package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"globesuggest/api/database"
)

func newMigrateCmd() *cobra.Command {
	var dbURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the session, event and lead tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := envOr(dbURL, "DATABASE_URL")
			if url == "" {
				url = "sqlite://globesuggest.db"
			}
			client, err := database.Open(url)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", client.Dialect)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbURL, "db", "", "Database URL (default: $DATABASE_URL)")
	return cmd
}

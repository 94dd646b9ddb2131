package cli

import (
	"fmt"

	"timekeeper/database"
	"timekeeper/logger"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("seed-admin", false, "Create the default admin account if it does not exist")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := setup()
	seed, _ := cmd.Flags().GetBool("seed-admin")

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if seed {
		if err := database.SeedDefaultAdmin(db); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	logger.Logger().Info().Str("driver", cfg.DatabaseDriver).Msg("schema is up to date")
	return nil
}

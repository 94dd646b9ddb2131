package cli

import (
	"fmt"
	"os"

	"timekeeper/config"
	"timekeeper/database"
	"timekeeper/hours"
	"timekeeper/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "timekeeper",
	Short: "Weekly timesheets, expenses and overtime for a contracting business",
	Long: `timekeeper tracks weekly timesheets and expenses for employees placed at
client sites, computes overtime per jurisdiction, and routes submissions to
the managers assigned to each client for approval.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and logging shared by every command.
func setup() *config.Config {
	cfg := config.Load()
	logger.InitLogging(cfg.LogLevel, cfg.LogFile)
	return cfg
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func loadRegistry(cfg *config.Config) (*hours.Registry, error) {
	if cfg.JurisdictionsFile == "" {
		return hours.DefaultRegistry(), nil
	}
	return hours.LoadRegistry(cfg.JurisdictionsFile)
}

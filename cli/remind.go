package cli

import (
	"time"

	"timekeeper/logger"
	"timekeeper/notify"
	"timekeeper/services"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(remindCmd)
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run one reminder pass and exit",
	Long: `Create reminders for approvals left pending too long and for employees
missing last week's timesheet. Useful from cron when serve runs with
--no-scheduler.`,
	Args: cobra.NoArgs,
	RunE: runRemind,
}

func runRemind(cmd *cobra.Command, args []string) error {
	cfg := setup()
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	scheduler := notify.NewScheduler(db, services.NewNotifications(db), cfg.NotifyInterval, cfg.PendingReminderAge)
	created, err := scheduler.RunOnce(cmd.Context(), time.Now().UTC())
	if err != nil {
		return err
	}
	logger.Logger().Info().Int("created", created).Msg("reminder pass finished")
	return nil
}

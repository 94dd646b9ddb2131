package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"timekeeper/database"
	"timekeeper/handlers"
	"timekeeper/logger"
	"timekeeper/middleware"
	"timekeeper/notify"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("no-scheduler", false, "Do not run the reminder scheduler in this process")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Migrate the database, seed the default admin when SEED_ADMIN is set, and
serve the JSON API on SERVER_PORT. The reminder scheduler runs alongside the
server unless --no-scheduler is given.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := setup()
	log := logger.Logger()
	noScheduler, _ := cmd.Flags().GetBool("no-scheduler")

	if cfg.UsingDefaultSecret() {
		log.Warn().Msg("JWT_SECRET is not set; using the built-in development secret")
	}
	middleware.SetJWTSecret(cfg.JWTSecret)

	if err := database.Init(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.LogLevel, cfg.SeedAdmin); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	db := database.GetDB()

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	loginLimiter, err := middleware.NewIPLimiter(cfg.LoginRateLimit)
	if err != nil {
		return fmt.Errorf("login rate limit %q: %w", cfg.LoginRateLimit, err)
	}

	svc := handlers.NewServices(db, registry)
	router := handlers.NewRouter(cfg, db, svc, loginLimiter)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = log.WithContext(ctx)

	if !noScheduler {
		scheduler := notify.NewScheduler(db, svc.Notifications, cfg.NotifyInterval, cfg.PendingReminderAge)
		go scheduler.Run(ctx)
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("driver", cfg.DatabaseDriver).Msg("server starting")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

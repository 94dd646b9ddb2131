package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseDriver     string
	DatabaseURL        string
	JWTSecret          string
	JWTExpiration      time.Duration
	ServerPort         string
	InviteExpiration   time.Duration
	JurisdictionsFile  string
	NotifyInterval     time.Duration
	PendingReminderAge time.Duration
	LogLevel           string
	LogFile            string
	LoginRateLimit     string
	SeedAdmin          bool
}

const defaultJWTSecret = "your-super-secret-key-change-in-production"

// Load reads configuration from the environment, with a .env file in the
// working directory filling in anything unset.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "postgresql://postgres@localhost:5432/timekeeper")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("INVITE_EXPIRATION", "168h")
	v.SetDefault("JURISDICTIONS_FILE", "")
	v.SetDefault("NOTIFY_INTERVAL", "15m")
	v.SetDefault("PENDING_REMINDER_AGE", "48h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOGIN_RATE_LIMIT", "10-M")
	v.SetDefault("SEED_ADMIN", true)
	v.AutomaticEnv()

	return &Config{
		DatabaseDriver:     v.GetString("DATABASE_DRIVER"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTExpiration:      durationOr(v, "JWT_EXPIRATION", 24*time.Hour),
		ServerPort:         v.GetString("SERVER_PORT"),
		InviteExpiration:   durationOr(v, "INVITE_EXPIRATION", 7*24*time.Hour),
		JurisdictionsFile:  v.GetString("JURISDICTIONS_FILE"),
		NotifyInterval:     durationOr(v, "NOTIFY_INTERVAL", 15*time.Minute),
		PendingReminderAge: durationOr(v, "PENDING_REMINDER_AGE", 48*time.Hour),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFile:            v.GetString("LOG_FILE"),
		LoginRateLimit:     v.GetString("LOGIN_RATE_LIMIT"),
		SeedAdmin:          v.GetBool("SEED_ADMIN"),
	}
}

// UsingDefaultSecret is true when JWT_SECRET was never set.
func (c *Config) UsingDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

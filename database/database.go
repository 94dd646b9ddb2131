package database

import (
	"fmt"
	"strings"

	"timekeeper/logger"
	"timekeeper/models"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init opens the database, migrates the schema and, when seedAdmin is set,
// creates the default admin account.
func Init(driver, dsn, logLevel string, seedAdmin bool) error {
	db, err := Open(driver, dsn, logLevel)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return err
	}
	if seedAdmin {
		if err := SeedDefaultAdmin(db); err != nil {
			return err
		}
	}
	DB = db
	return nil
}

// Open connects with the postgres driver, or the pure-Go sqlite driver
// for local runs and tests.
func Open(driver, dsn, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLevel(logLevel)),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Client{},
		&models.Employee{},
		&models.ClientManager{},
		&models.Project{},
		&models.Invite{},
		&models.Timesheet{},
		&models.TimeEntry{},
		&models.Expense{},
		&models.Notification{},
	)
}

func SeedDefaultAdmin(db *gorm.DB) error {
	var count int64
	db.Model(&models.Employee{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.Employee{
		Username:           "admin",
		FirstName:          "Administrator",
		PasswordHash:       string(hashedPassword),
		Role:               models.RoleAdmin,
		IsActive:           true,
		IsExempt:           true,
		MustChangePassword: true,
	}

	result := db.Create(&admin)
	if result.Error != nil {
		return result.Error
	}

	logger.Logger().Info().Msg("Default admin user created (username: admin, password: admin)")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

func gormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return gormlogger.Info
	case "silent", "disabled":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

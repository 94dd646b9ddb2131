// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"fmt"
	"testing"

	"timekeeper/database"
	"timekeeper/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// New returns a migrated in-memory sqlite database private to t.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := database.Open("sqlite", dsn, "silent")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Employee inserts an active employee. Password is always "password".
func Employee(t testing.TB, db *gorm.DB, username string, role models.Role, clientID *uint) *models.Employee {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	e := &models.Employee{
		Username:     username,
		FirstName:    username,
		PasswordHash: string(hash),
		Role:         role,
		ClientID:     clientID,
		IsActive:     true,
	}
	require.NoError(t, db.Create(e).Error)
	// must_change_password defaults to true in the schema
	require.NoError(t, db.Model(e).Update("must_change_password", false).Error)
	e.MustChangePassword = false
	return e
}

func Client(t testing.TB, db *gorm.DB, name string) *models.Client {
	t.Helper()
	c := &models.Client{Name: name, IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

func Project(t testing.TB, db *gorm.DB, name string, clientID *uint) *models.Project {
	t.Helper()
	p := &models.Project{Name: name, ClientID: clientID, IsActive: true}
	require.NoError(t, db.Create(p).Error)
	return p
}

// AssignManager makes manager an approver for client.
func AssignManager(t testing.TB, db *gorm.DB, manager *models.Employee, client *models.Client) {
	t.Helper()
	require.NoError(t, db.Create(&models.ClientManager{ManagerID: manager.ID, ClientID: client.ID}).Error)
}

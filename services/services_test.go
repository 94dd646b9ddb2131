package services

import (
	"context"
	"testing"

	"timekeeper/database/dbtest"
	"timekeeper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	acme     *models.Client
	globex   *models.Client
	admin    *models.Employee
	manager  *models.Employee
	alice    *models.Employee
	bob      *models.Employee
	floater  *models.Employee
	projectA *models.Project
}

// newFixture seeds two clients. manager approves for Acme only; alice works
// for Acme, bob for Globex and floater for nobody.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	f := &fixture{db: db}
	f.acme = dbtest.Client(t, db, "Acme")
	f.globex = dbtest.Client(t, db, "Globex")
	f.projectA = dbtest.Project(t, db, "Acme rollout", &f.acme.ID)
	f.admin = dbtest.Employee(t, db, "admin", models.RoleAdmin, nil)
	f.manager = dbtest.Employee(t, db, "manager", models.RoleManager, nil)
	f.alice = dbtest.Employee(t, db, "alice", models.RoleEmployee, &f.acme.ID)
	f.bob = dbtest.Employee(t, db, "bob", models.RoleEmployee, &f.globex.ID)
	f.floater = dbtest.Employee(t, db, "floater", models.RoleEmployee, nil)
	dbtest.AssignManager(t, db, f.manager, f.acme)
	return f
}

func TestCheckApprover(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		approver *models.Employee
		owner    *models.Employee
		allowed  bool
	}{
		{"admin approves anyone", f.admin, f.bob, true},
		{"admin approves unassigned", f.admin, f.floater, true},
		{"manager approves own client", f.manager, f.alice, true},
		{"manager other client", f.manager, f.bob, false},
		{"manager unassigned employee", f.manager, f.floater, false},
		{"employee never approves", f.alice, f.bob, false},
		{"no self approval", f.admin, f.admin, false},
		{"no approver", nil, f.alice, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckApprover(f.db, tt.approver, tt.owner)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestApproversFor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	approvers, err := ApproversFor(ctx, f.db, f.alice)
	require.NoError(t, err)
	var ids []uint
	for _, a := range approvers {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []uint{f.admin.ID, f.manager.ID}, ids)

	approvers, err = ApproversFor(ctx, f.db, f.bob)
	require.NoError(t, err)
	require.Len(t, approvers, 1)
	assert.Equal(t, f.admin.ID, approvers[0].ID)

	approvers, err = ApproversFor(ctx, f.db, f.admin)
	require.NoError(t, err)
	assert.Empty(t, approvers)
}

func TestManagedClientIDs(t *testing.T) {
	f := newFixture(t)
	dbtest.AssignManager(t, f.db, f.manager, f.globex)

	ids, err := ManagedClientIDs(f.db, f.manager.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.acme.ID, f.globex.ID}, ids)

	ids, err = ManagedClientIDs(f.db, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

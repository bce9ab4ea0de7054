package users

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
)

func newService(t *testing.T) (*Service, *database.Database) {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewService(db), db
}

func TestRegisterAndFind(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "auth0|abc", "someone@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Contains(t, user.Roles, RoleBasicUser)

	byEmail, err := svc.FindByEmail(ctx, "someone@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byExternal, err := svc.FindByExternalID(ctx, "auth0|abc")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byExternal.ID)

	_, err = svc.FindByID(ctx, "missing")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "auth0|one", "dup@example.com")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "auth0|two", "dup@example.com")
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestRoleGrantIsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "auth0|abc", "someone@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.AddRole(ctx, user.ID, RoleCommunityMember))
	require.NoError(t, svc.AddRole(ctx, user.ID, RoleCommunityMember))

	roles, err := svc.Roles(ctx, user.ID)
	require.NoError(t, err)

	count := 0
	for _, r := range roles {
		if r == RoleCommunityMember {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestReconcileRolesFromOwnedPlants(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "auth0|abc", "someone@example.com")
	require.NoError(t, err)

	// A plant exists but the role was never granted.
	_, err = db.CreatePowerPlant(ctx, database.PowerPlantRow{
		UserID:      user.ID,
		DisplayName: "roof",
	})
	require.NoError(t, err)

	granted, revoked, err := svc.ReconcileRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, granted, RolePowerPlantOwner)
	assert.Empty(t, revoked)

	roles, err := svc.Roles(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, HasRole(roles, RolePowerPlantOwner))
}

func TestReconcileRolesRevokesStaleMembership(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "auth0|abc", "someone@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.AddRole(ctx, user.ID, RoleCommunityMember))

	_, revoked, err := svc.ReconcileRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, revoked, RoleCommunityMember)
}

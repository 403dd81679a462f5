package services

import (
	"context"
	"testing"

	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryExcludesCallerAdminsAndBlocked(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store)
	ctx := context.Background()

	caller := student("u1", "inst_a")
	seedUser(t, store, caller)
	seedUser(t, store, student("u2", "inst_a"))
	seedUser(t, store, instAdmin("inst_a"))
	blocked := student("u3", "inst_a")
	blocked.Blocked = true
	seedUser(t, store, blocked)
	seedUser(t, store, student("u4", "inst_b"))

	peers, err := svc.Directory(ctx, caller)
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "u2", peers[0].UID)
}

func TestAdminListIncludesBlocked(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store)
	ctx := context.Background()

	seedUser(t, store, student("u1", "inst_a"))
	blocked := student("u2", "inst_a")
	blocked.Blocked = true
	seedUser(t, store, blocked)
	seedUser(t, store, instAdmin("inst_a"))

	members, err := svc.AdminList(ctx, instAdmin("inst_a"), "inst_a")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = svc.AdminList(ctx, student("u1", "inst_a"), "inst_a")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestToggleBlock(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store)
	ctx := context.Background()

	seedUser(t, store, student("u1", "inst_a"))

	updated, err := svc.ToggleBlock(ctx, instAdmin("inst_a"), "u1")
	require.NoError(t, err)
	assert.True(t, updated.Blocked)

	updated, err = svc.ToggleBlock(ctx, instAdmin("inst_a"), "u1")
	require.NoError(t, err)
	assert.False(t, updated.Blocked)

	// Admins cannot moderate other institutions' members.
	_, err = svc.ToggleBlock(ctx, instAdmin("inst_b"), "u1")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestDeleteUserRemovesCredentials(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store)
	ctx := context.Background()

	seedUser(t, store, student("u1", "inst_a"))
	require.NoError(t, store.Put(ctx, database.CollectionAccounts, "u1",
		model.Account{UID: "u1", InstitutionID: "inst_a", Email: "u1@a.edu"}))

	require.NoError(t, svc.Delete(ctx, instAdmin("inst_a"), "u1"))

	var profile model.UserProfile
	assert.ErrorIs(t, store.Get(ctx, database.CollectionUsers, "u1", &profile), database.ErrNotFound)
	var account model.Account
	assert.ErrorIs(t, store.Get(ctx, database.CollectionAccounts, "u1", &account), database.ErrNotFound)
}

func TestUpdateProfileLeavesIdentityFieldsAlone(t *testing.T) {
	store := newTestStore(t)
	svc := NewUserService(store)
	ctx := context.Background()

	caller := student("u1", "inst_a")
	seedUser(t, store, caller)

	name := "New Name"
	bio := "Researcher"
	updated, err := svc.UpdateProfile(ctx, caller, UpdateProfileInput{Name: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "Researcher", updated.Bio)
	assert.Equal(t, caller.Batch, updated.Batch)
	assert.Equal(t, "inst_a", updated.InstitutionID)
	assert.Equal(t, model.RoleStudent, updated.Role)

	empty := "  "
	_, err = svc.UpdateProfile(ctx, caller, UpdateProfileInput{Name: &empty})
	assert.ErrorIs(t, err, ErrValidation)
}

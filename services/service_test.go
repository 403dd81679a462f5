package services

import (
	"context"
	"testing"

	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
	"github.com/stretchr/testify/require"
)

// Shared fixtures for the façade service tests. Everything runs against the
// file-backed store in a temp directory; both backends honor the same
// Storage contract.

func newTestStore(t *testing.T) database.Storage {
	t.Helper()
	store, err := database.StartFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Init())
	return store
}

func superAdmin() *model.UserProfile {
	return &model.UserProfile{
		UID:           SuperAdminUID,
		InstitutionID: SuperAdminInstitutionID,
		Name:          "Super Admin",
		Role:          model.RoleSuperAdmin,
	}
}

func instAdmin(institutionID string) *model.UserProfile {
	return &model.UserProfile{
		UID:           "admin_" + institutionID,
		InstitutionID: institutionID,
		Name:          "Admin",
		Role:          model.RoleInstitutionAdmin,
	}
}

func student(uid, institutionID string) *model.UserProfile {
	return &model.UserProfile{
		UID:           uid,
		InstitutionID: institutionID,
		Name:          "Student " + uid,
		Role:          model.RoleStudent,
		Batch:         "2021-2025",
	}
}

func seedInstitution(t *testing.T, store database.Storage, id, code, emailDomain string) model.Institution {
	t.Helper()
	inst := model.Institution{
		ID:          id,
		Name:        "Institution " + code,
		Code:        code,
		Logo:        DefaultLogo,
		ThemeColor:  DefaultThemeColor,
		EmailDomain: emailDomain,
	}
	require.NoError(t, store.Put(context.Background(), database.CollectionInstitutions, inst.ID, inst))
	return inst
}

func seedUser(t *testing.T, store database.Storage, profile *model.UserProfile) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), database.CollectionUsers, profile.UID, *profile))
}

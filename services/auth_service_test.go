package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/squadran/squadran-api/config"
	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
	"github.com/squadran/squadran-api/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(store database.Storage) *AuthService {
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        "test-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "squadran-test",
	})
	env := &config.EnviornmentVariable{
		SUPER_ADMIN_EMAIL:    "superadmin@squadran.app",
		SUPER_ADMIN_PASSWORD: "super-secret-1",
		INST_ADMIN_EMAIL:     "admin@squadran.app",
	}
	return NewAuthService(store, jwtManager, nil, env)
}

func signupRohan(t *testing.T, svc *AuthService) *Session {
	t.Helper()
	session, err := svc.SignupStudent(context.Background(), SignupInput{
		InstitutionID: "inst_nfsu",
		Name:          "Rohan Sharma",
		Email:         "rohan@nfsu.ac.in",
		Password:      "correct-horse",
		RollNo:        "NFSU2021001",
		Batch:         "2021-2025",
	})
	require.NoError(t, err)
	return session
}

func TestSignupStudentAndLogin(t *testing.T) {
	store := newTestStore(t)
	svc := newAuthService(store)
	ctx := context.Background()

	seedInstitution(t, store, "inst_nfsu", "NFSU", "nfsu.ac.in")

	session := signupRohan(t, svc)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, model.RoleStudent, session.Profile.Role)
	assert.Equal(t, "Student", session.Profile.Bio)
	assert.Contains(t, session.Profile.Avatar, "ui-avatars.com")

	// Credentials never leave the accounts collection as plaintext.
	var account model.Account
	require.NoError(t, store.Get(ctx, database.CollectionAccounts, session.Profile.UID, &account))
	assert.NotEqual(t, "correct-horse", account.PasswordHash)
	assert.NotEmpty(t, account.PasswordHash)

	login, err := svc.LoginStudent(ctx, "inst_nfsu", "rohan@nfsu.ac.in", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, session.Profile.UID, login.Profile.UID)

	_, err = svc.LoginStudent(ctx, "inst_nfsu", "rohan@nfsu.ac.in", "wrong")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSignupStudentRequiresRollNoAndDomain(t *testing.T) {
	store := newTestStore(t)
	svc := newAuthService(store)
	ctx := context.Background()

	seedInstitution(t, store, "inst_nfsu", "NFSU", "nfsu.ac.in")

	_, err := svc.SignupStudent(ctx, SignupInput{
		InstitutionID: "inst_nfsu",
		Name:          "No Roll",
		Email:         "noroll@nfsu.ac.in",
		Password:      "correct-horse",
		Batch:         "2021-2025",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.SignupStudent(ctx, SignupInput{
		InstitutionID: "inst_nfsu",
		Name:          "Wrong Domain",
		Email:         "someone@gmail.com",
		Password:      "correct-horse",
		RollNo:        "NFSU2021002",
		Batch:         "2021-2025",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSignupAlumniSkipsDomainRestriction(t *testing.T) {
	store := newTestStore(t)
	svc := newAuthService(store)
	ctx := context.Background()

	seedInstitution(t, store, "inst_nfsu", "NFSU", "nfsu.ac.in")

	session, err := svc.SignupAlumni(ctx, SignupInput{
		InstitutionID: "inst_nfsu",
		Name:          "Old Grad",
		Email:         "grad@gmail.com",
		Password:      "correct-horse",
		Batch:         "2015-2019",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAlumni, session.Profile.Role)
	assert.Equal(t, "Alumni", session.Profile.Bio)
}

func TestSignupRejectsDuplicateAndReservedEmails(t *testing.T) {
	store := newTestStore(t)
	svc := newAuthService(store)
	ctx := context.Background()

	seedInstitution(t, store, "inst_nfsu", "NFSU", "nfsu.ac.in")
	signupRohan(t, svc)

	_, err := svc.SignupStudent(ctx, SignupInput{
		InstitutionID: "inst_nfsu",
		Name:          "Rohan Again",
		Email:         "rohan@nfsu.ac.in",
		Password:      "correct-horse",
		RollNo:        "NFSU2021099",
		Batch:         "2021-2025",
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.SignupAlumni(ctx, SignupInput{
		InstitutionID: "inst_nfsu",
		Name:          "Impostor",
		Email:         "superadmin@squadran.app",
		Password:      "correct-horse",
		Batch:         "2015-2019",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLoginEnforcesRoleAndInstitution(t *testing.T) {
	store := newTestStore(t)
	svc := newAuthService(store)
	ctx := context.Background()

	seedInstitution(t, store, "inst_nfsu", "NFSU", "nfsu.ac.in")
	seedInstitution(t, store, "inst_iit", "IITD", "")
	signupRohan(t, svc)

	// A student cannot use the alumni door.
	_, err := svc.LoginAlumni(ctx, "inst_nfsu", "rohan@nfsu.ac.in", "correct-horse")
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Nor log in through another institution.
	_, err = svc.LoginStudent(ctx, "inst_iit", "rohan@nfsu.ac.in", "correct-horse")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestLoginBlockedAccount(t *testing.T) {
	store := newTestStore(t)
	svc := newAuthService(store)
	ctx := context.Background()

	seedInstitution(t, store, "inst_nfsu", "NFSU", "nfsu.ac.in")
	session := signupRohan(t, svc)

	profile := *session.Profile
	profile.Blocked = true
	require.NoError(t, store.Put(ctx, database.CollectionUsers, profile.UID, profile))

	_, err := svc.LoginStudent(ctx, "inst_nfsu", "rohan@nfsu.ac.in", "correct-horse")
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestLoginInstAdminProvisionsOnFirstUse(t *testing.T) {
	store := newTestStore(t)
	svc := newAuthService(store)
	ctx := context.Background()

	seedInstitution(t, store, "inst_nfsu", "NFSU", "nfsu.ac.in")

	session, err := svc.LoginInstAdmin(ctx, "inst_nfsu", "admin@squadran.app", "admin-pass-1")
	require.NoError(t, err)
	assert.Equal(t, "admin_inst_nfsu", session.Profile.UID)
	assert.Equal(t, "NFSU Admin", session.Profile.Name)
	assert.Equal(t, model.RoleInstitutionAdmin, session.Profile.Role)

	// Second login verifies against the stored credential.
	_, err = svc.LoginInstAdmin(ctx, "inst_nfsu", "admin@squadran.app", "admin-pass-1")
	assert.NoError(t, err)
	_, err = svc.LoginInstAdmin(ctx, "inst_nfsu", "admin@squadran.app", "different")
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Only the configured admin email is recognized.
	_, err = svc.LoginInstAdmin(ctx, "inst_nfsu", "other@squadran.app", "admin-pass-1")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestLoginSuperAdmin(t *testing.T) {
	store := newTestStore(t)
	svc := newAuthService(store)
	ctx := context.Background()

	session, err := svc.LoginSuperAdmin(ctx, "superadmin@squadran.app", "super-secret-1")
	require.NoError(t, err)
	assert.Equal(t, SuperAdminUID, session.Profile.UID)
	assert.Equal(t, model.RoleSuperAdmin, session.Profile.Role)

	var stored model.UserProfile
	require.NoError(t, store.Get(ctx, database.CollectionUsers, SuperAdminUID, &stored))
	assert.Equal(t, SuperAdminInstitutionID, stored.InstitutionID)

	_, err = svc.LoginSuperAdmin(ctx, "superadmin@squadran.app", "wrong")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRefresh(t *testing.T) {
	store := newTestStore(t)
	svc := newAuthService(store)
	ctx := context.Background()

	seedInstitution(t, store, "inst_nfsu", "NFSU", "nfsu.ac.in")
	session := signupRohan(t, svc)

	access, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	// An access token is not accepted as a refresh token.
	_, err = svc.Refresh(ctx, session.AccessToken)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

// flakyStore fails every Get while tripped, standing in for a backend that
// is temporarily unreachable.
type flakyStore struct {
	database.Storage
	failing atomic.Bool
}

func (f *flakyStore) Get(ctx context.Context, collection, id string, out interface{}) error {
	if f.failing.Load() {
		return errors.New("connection refused")
	}
	return f.Storage.Get(ctx, collection, id, out)
}

func TestWatchSessionSurvivesTransientStoreFailure(t *testing.T) {
	store := &flakyStore{Storage: newTestStore(t)}
	svc := newAuthService(store)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seedInstitution(t, store, "inst_nfsu", "NFSU", "nfsu.ac.in")
	session := signupRohan(t, svc)
	uid := session.Profile.UID

	updates := make(chan *model.UserProfile, 16)
	go func() {
		svc.WatchSession(ctx, uid, 10*time.Millisecond, func(p *model.UserProfile) {
			updates <- p
		})
	}()

	first := <-updates
	require.NotNil(t, first)

	// An unreachable store is not a deleted profile: the watcher must not
	// report a teardown while the backend is down.
	store.failing.Store(true)
	time.Sleep(60 * time.Millisecond)
	select {
	case p := <-updates:
		t.Fatalf("unexpected callback during store outage: %+v", p)
	default:
	}

	// Once the store recovers the same watch picks up later changes.
	store.failing.Store(false)
	profile := *session.Profile
	profile.Name = "Rohan S."
	require.NoError(t, store.Put(ctx, database.CollectionUsers, uid, profile))

	select {
	case p := <-updates:
		require.NotNil(t, p)
		assert.Equal(t, "Rohan S.", p.Name)
	case <-ctx.Done():
		t.Fatal("no callback after the store recovered")
	}
}

func TestWatchSessionEndsWhenBlocked(t *testing.T) {
	store := newTestStore(t)
	svc := newAuthService(store)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seedInstitution(t, store, "inst_nfsu", "NFSU", "nfsu.ac.in")
	session := signupRohan(t, svc)
	uid := session.Profile.UID

	updates := make(chan *model.UserProfile, 16)
	done := make(chan struct{})
	go func() {
		svc.WatchSession(ctx, uid, 10*time.Millisecond, func(p *model.UserProfile) {
			updates <- p
		})
		close(done)
	}()

	// First callback fires immediately with the live profile.
	first := <-updates
	require.NotNil(t, first)
	assert.Equal(t, uid, first.UID)

	profile := *session.Profile
	profile.Blocked = true
	require.NoError(t, store.Put(ctx, database.CollectionUsers, uid, profile))

	// The watcher reports the forced teardown with nil and stops.
	for {
		var p *model.UserProfile
		select {
		case p = <-updates:
		case <-ctx.Done():
			t.Fatal("no teardown callback after the profile was blocked")
		}
		if p == nil {
			break
		}
	}
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("watch did not stop after the profile was blocked")
	}
}

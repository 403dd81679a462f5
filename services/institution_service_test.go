package services

import (
	"context"
	"testing"

	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInstitutionSeedsWelcomePost(t *testing.T) {
	store := newTestStore(t)
	svc := NewInstitutionService(store, nil)
	ctx := context.Background()

	inst, err := svc.Create(ctx, superAdmin(), CreateInstitutionInput{
		Name: "National Forensic Sciences University",
		Code: "NFSU",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultLogo, inst.Logo)
	assert.Equal(t, DefaultThemeColor, inst.ThemeColor)

	var posts []model.Post
	require.NoError(t, store.List(ctx, database.CollectionPosts, &posts,
		database.Eq("institutionId", inst.ID)))
	require.Len(t, posts, 1)

	welcome := posts[0]
	assert.Equal(t, "Welcome to National Forensic Sciences University", welcome.Title)
	assert.Equal(t, "Welcome to the official National Forensic Sciences University social platform powered by Squadran.", welcome.Content)
	assert.Equal(t, "system", welcome.AuthorID)
	assert.Equal(t, "NFSU Admin", welcome.AuthorName)
	assert.Equal(t, model.RoleInstitutionAdmin, welcome.AuthorRole)
	assert.Equal(t, model.PostVerified, welcome.Status)
	assert.Equal(t, model.PostNewsletter, welcome.Type)
}

func TestCreateInstitutionRequiresSuperAdmin(t *testing.T) {
	svc := NewInstitutionService(newTestStore(t), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, instAdmin("inst_x"), CreateInstitutionInput{Name: "X", Code: "XY"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Create(ctx, nil, CreateInstitutionInput{Name: "X", Code: "XY"})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestCreateInstitutionRejectsDuplicateCode(t *testing.T) {
	svc := NewInstitutionService(newTestStore(t), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, superAdmin(), CreateInstitutionInput{Name: "First", Code: "NFSU"})
	require.NoError(t, err)

	// Case differences do not make the code unique.
	_, err = svc.Create(ctx, superAdmin(), CreateInstitutionInput{Name: "Second", Code: "nfsu"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetByCodeIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	svc := NewInstitutionService(store, nil)
	ctx := context.Background()

	seeded := seedInstitution(t, store, "inst_nfsu", "NFSU", "")

	for _, code := range []string{"NFSU", "nfsu", "  NfSu  "} {
		inst, err := svc.GetByCode(ctx, code)
		require.NoError(t, err, "code %q", code)
		assert.Equal(t, seeded.ID, inst.ID)
	}

	_, err := svc.GetByCode(ctx, "MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteInstitutionCascades(t *testing.T) {
	store := newTestStore(t)
	svc := NewInstitutionService(store, nil)
	ctx := context.Background()

	inst := seedInstitution(t, store, "inst_a", "AAAA", "")
	other := seedInstitution(t, store, "inst_b", "BBBB", "")

	seedUser(t, store, student("u1", inst.ID))
	seedUser(t, store, student("u2", other.ID))
	require.NoError(t, store.Put(ctx, database.CollectionAccounts, "u1",
		model.Account{UID: "u1", InstitutionID: inst.ID, Email: "u1@a.edu"}))
	require.NoError(t, store.Put(ctx, database.CollectionPosts, "p1",
		model.Post{ID: "p1", InstitutionID: inst.ID, Content: "hi", Status: model.PostVerified, Type: model.PostNewsletter}))
	require.NoError(t, store.Put(ctx, database.CollectionPosts, "p2",
		model.Post{ID: "p2", InstitutionID: other.ID, Content: "hi", Status: model.PostVerified, Type: model.PostNewsletter}))

	require.NoError(t, svc.Delete(ctx, superAdmin(), inst.ID))

	var gone model.Institution
	assert.ErrorIs(t, store.Get(ctx, database.CollectionInstitutions, inst.ID, &gone), database.ErrNotFound)

	var users []model.UserProfile
	require.NoError(t, store.List(ctx, database.CollectionUsers, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].UID)

	var accounts []model.Account
	require.NoError(t, store.List(ctx, database.CollectionAccounts, &accounts))
	assert.Empty(t, accounts)

	var posts []model.Post
	require.NoError(t, store.List(ctx, database.CollectionPosts, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "p2", posts[0].ID)
}

func TestOnboardingRequestLifecycle(t *testing.T) {
	store := newTestStore(t)
	svc := NewInstitutionService(store, nil)
	ctx := context.Background()

	req, err := svc.SubmitOnboardingRequest(ctx, "Stanford University", "admissions@stanford.edu", "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req.Status)

	pending, err := svc.PendingRequests(ctx, superAdmin())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	inst, err := svc.ApproveRequest(ctx, superAdmin(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stanford University", inst.Name)
	assert.Equal(t, "STAN", inst.Code)
	assert.Equal(t, "Partner Institution", inst.Description)
	assert.Contains(t, []string{"#FF725E", "#4AA4F2", "#6C63FF", "#43D9AD", "#FFC75F"}, inst.ThemeColor)

	// Approved requests leave the pending queue and cannot be approved twice.
	pending, err = svc.PendingRequests(ctx, superAdmin())
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = svc.ApproveRequest(ctx, superAdmin(), req.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestApproveRequestCodeCollisionKeepsRequestPending(t *testing.T) {
	store := newTestStore(t)
	svc := NewInstitutionService(store, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, superAdmin(), CreateInstitutionInput{
		Name: "Stanford University",
		Code: "STAN",
	})
	require.NoError(t, err)

	req, err := svc.SubmitOnboardingRequest(ctx, "Stanbridge College", "admin@stanbridge.edu", "John Roe")
	require.NoError(t, err)

	_, err = svc.ApproveRequest(ctx, superAdmin(), req.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// The failed approval must not strand the request: it stays PENDING
	// and no second institution was onboarded.
	var stored model.OnboardingRequest
	require.NoError(t, store.Get(ctx, database.CollectionRequests, req.ID, &stored))
	assert.Equal(t, model.RequestPending, stored.Status)

	insts, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, insts, 1)
}

func TestApproveRequestMultibyteName(t *testing.T) {
	store := newTestStore(t)
	svc := NewInstitutionService(store, nil)
	ctx := context.Background()

	req, err := svc.SubmitOnboardingRequest(ctx, "École Polytechnique", "contact@polytechnique.edu", "Marie Curie")
	require.NoError(t, err)

	// The code is derived from the first four runes, not bytes, so a
	// leading multibyte letter must not get split mid-sequence.
	inst, err := svc.ApproveRequest(ctx, superAdmin(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, "ÉCOL", inst.Code)
}

func TestPendingRequestsRequiresSuperAdmin(t *testing.T) {
	svc := NewInstitutionService(newTestStore(t), nil)

	_, err := svc.PendingRequests(context.Background(), instAdmin("inst_a"))
	assert.ErrorIs(t, err, ErrAccessDenied)
}

package services

import (
	"context"
	"errors"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/squadran/squadran-api/config"
	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
	"github.com/squadran/squadran-api/utils/auth"
	"github.com/squadran/squadran-api/utils/validation"
)

// SuperAdminUID is the fixed uid of the singleton platform operator profile.
const SuperAdminUID = "super_admin"

// SuperAdminInstitutionID is the synthetic tenant the platform operator
// belongs to. No real institution ever gets this id.
const SuperAdminInstitutionID = "squadran"

// Session is the result of a successful login or signup.
type Session struct {
	Profile      *model.UserProfile `json:"profile"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
	ExpiresIn    int64              `json:"expiresIn"` // seconds until the access token expires
}

// SignupInput carries the fields a student or alumni signup form submits.
type SignupInput struct {
	InstitutionID string `json:"institutionId" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	RollNo        string `json:"rollNo"`
	Batch         string `json:"batch" validate:"required"`
	Bio           string `json:"bio"`
	Avatar        string `json:"avatar"`
}

// AuthService implements credential storage, session issuance and the
// session watcher: an accounts collection of bcrypt hashes plus JWT
// access/refresh tokens.
type AuthService struct {
	store     database.Storage
	jwt       *auth.JWTManager
	blacklist *auth.BlacklistService
	env       *config.EnviornmentVariable
}

// NewAuthService creates a new auth service
func NewAuthService(store database.Storage, jwtManager *auth.JWTManager, blacklist *auth.BlacklistService, env *config.EnviornmentVariable) *AuthService {
	return &AuthService{store: store, jwt: jwtManager, blacklist: blacklist, env: env}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupStudent registers a student inside an institution and signs them in.
func (s *AuthService) SignupStudent(ctx context.Context, in SignupInput) (*Session, error) {
	if strings.TrimSpace(in.RollNo) == "" {
		return nil, validationf("roll number is required for students")
	}
	return s.signup(ctx, in, model.RoleStudent)
}

// SignupAlumni registers an alumnus inside an institution and signs them in.
// Alumni register with a personal email, so no roll number is collected.
func (s *AuthService) SignupAlumni(ctx context.Context, in SignupInput) (*Session, error) {
	return s.signup(ctx, in, model.RoleAlumni)
}

func (s *AuthService) signup(ctx context.Context, in SignupInput, role model.Role) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if in.InstitutionID == "" || in.Name == "" || in.Email == "" || in.Batch == "" {
		return nil, validationf("institutionId, name, email and batch are required")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, validationf("password must be at least %d characters", auth.MinPasswordLength)
	}
	if in.Email == normalizeEmail(s.env.SUPER_ADMIN_EMAIL) || in.Email == normalizeEmail(s.env.INST_ADMIN_EMAIL) {
		return nil, conflictf("email %s is reserved", in.Email)
	}

	var inst model.Institution
	if err := s.store.Get(ctx, database.CollectionInstitutions, in.InstitutionID, &inst); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, validationf("institution %s does not exist", in.InstitutionID)
		}
		return nil, storeErr(err)
	}

	// Students must use the institution's mail domain when one is enforced.
	// Alumni typically no longer hold an institutional address.
	if role == model.RoleStudent && inst.EmailDomain != "" &&
		validation.EmailDomain(in.Email) != strings.ToLower(inst.EmailDomain) {
		return nil, validationf("email must belong to the %s domain", inst.EmailDomain)
	}

	if err := s.ensureEmailUnused(ctx, in.Email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, validationf("invalid password: %v", err)
	}

	uid := "u_" + uuid.New().String()
	bio := in.Bio
	if bio == "" {
		if role == model.RoleAlumni {
			bio = "Alumni"
		} else {
			bio = "Student"
		}
	}
	avatar := in.Avatar
	if avatar == "" {
		avatar = model.DefaultAvatar(in.Name)
	}

	profile := model.UserProfile{
		UID:           uid,
		InstitutionID: in.InstitutionID,
		Name:          in.Name,
		Email:         in.Email,
		RollNo:        in.RollNo,
		Role:          role,
		Avatar:        avatar,
		Batch:         in.Batch,
		Bio:           bio,
	}
	account := model.Account{
		UID:           uid,
		InstitutionID: in.InstitutionID,
		Email:         in.Email,
		PasswordHash:  hash,
	}

	err = s.store.RunInTransaction(ctx, func(tx database.Storage) error {
		if err := tx.Put(ctx, database.CollectionAccounts, uid, account); err != nil {
			return err
		}
		return tx.Put(ctx, database.CollectionUsers, uid, profile)
	})
	if err != nil {
		return nil, storeErr(err)
	}

	return s.issueSession(&profile)
}

func (s *AuthService) ensureEmailUnused(ctx context.Context, email string) error {
	var existing []model.Account
	if err := s.store.List(ctx, database.CollectionAccounts, &existing, database.Eq("email", email)); err != nil {
		return storeErr(err)
	}
	if len(existing) > 0 {
		return conflictf("an account with email %s already exists", email)
	}
	return nil
}

// LoginStudent signs a student in to their institution.
func (s *AuthService) LoginStudent(ctx context.Context, institutionID, email, password string) (*Session, error) {
	return s.loginMember(ctx, institutionID, email, password, model.RoleStudent)
}

// LoginAlumni signs an alumnus in to their institution.
func (s *AuthService) LoginAlumni(ctx context.Context, institutionID, email, password string) (*Session, error) {
	return s.loginMember(ctx, institutionID, email, password, model.RoleAlumni)
}

func (s *AuthService) loginMember(ctx context.Context, institutionID, email, password string, role model.Role) (*Session, error) {
	email = normalizeEmail(email)
	if institutionID == "" || email == "" || password == "" {
		return nil, validationf("institutionId, email and password are required")
	}

	account, err := s.findAccount(ctx, institutionID, email)
	if err != nil {
		return nil, err
	}
	if err := auth.VerifyPassword(account.PasswordHash, password); err != nil {
		return nil, accessDeniedf("invalid credentials")
	}

	var profile model.UserProfile
	if err := s.store.Get(ctx, database.CollectionUsers, account.UID, &profile); err != nil {
		return nil, storeErr(err)
	}
	if profile.Role != role {
		return nil, accessDeniedf("account is not registered as %s", role)
	}
	if profile.InstitutionID != institutionID {
		return nil, accessDeniedf("account does not belong to this institution")
	}
	if profile.Blocked {
		return nil, ErrBlocked
	}

	return s.issueSession(&profile)
}

func (s *AuthService) findAccount(ctx context.Context, institutionID, email string) (*model.Account, error) {
	var accounts []model.Account
	err := s.store.List(ctx, database.CollectionAccounts, &accounts,
		database.Eq("institutionId", institutionID), database.Eq("email", email))
	if err != nil {
		return nil, storeErr(err)
	}
	if len(accounts) == 0 {
		return nil, accessDeniedf("invalid credentials")
	}
	return &accounts[0], nil
}

// LoginInstAdmin signs in the institution administrator. Exactly one admin
// email is recognized per deployment; the admin account and profile are
// provisioned on first login, which keeps onboarding a new tenant a
// zero-step affair for operators.
func (s *AuthService) LoginInstAdmin(ctx context.Context, institutionID, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email != normalizeEmail(s.env.INST_ADMIN_EMAIL) {
		return nil, accessDeniedf("invalid credentials")
	}
	if institutionID == "" || password == "" {
		return nil, validationf("institutionId and password are required")
	}

	var inst model.Institution
	if err := s.store.Get(ctx, database.CollectionInstitutions, institutionID, &inst); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, validationf("institution %s does not exist", institutionID)
		}
		return nil, storeErr(err)
	}

	uid := "admin_" + institutionID
	var account model.Account
	err := s.store.Get(ctx, database.CollectionAccounts, uid, &account)
	switch {
	case errors.Is(err, database.ErrNotFound):
		session, provErr := s.provisionInstAdmin(ctx, &inst, uid, email, password)
		if provErr != nil {
			return nil, provErr
		}
		return session, nil
	case err != nil:
		return nil, storeErr(err)
	}

	if err := auth.VerifyPassword(account.PasswordHash, password); err != nil {
		return nil, accessDeniedf("invalid credentials")
	}

	var profile model.UserProfile
	if err := s.store.Get(ctx, database.CollectionUsers, uid, &profile); err != nil {
		return nil, storeErr(err)
	}
	return s.issueSession(&profile)
}

func (s *AuthService) provisionInstAdmin(ctx context.Context, inst *model.Institution, uid, email, password string) (*Session, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, validationf("invalid password: %v", err)
	}

	profile := model.UserProfile{
		UID:           uid,
		InstitutionID: inst.ID,
		Name:          inst.Code + " Admin",
		Email:         email,
		Role:          model.RoleInstitutionAdmin,
		Avatar:        model.DefaultAvatar(inst.Code + " Admin"),
		Bio:           "Institution Administrator",
	}
	account := model.Account{
		UID:           uid,
		InstitutionID: inst.ID,
		Email:         email,
		PasswordHash:  hash,
	}

	err = s.store.RunInTransaction(ctx, func(tx database.Storage) error {
		if err := tx.Put(ctx, database.CollectionAccounts, uid, account); err != nil {
			return err
		}
		return tx.Put(ctx, database.CollectionUsers, uid, profile)
	})
	if err != nil {
		return nil, storeErr(err)
	}

	log.Printf("provisioned institution admin for %s (%s)", inst.Name, inst.ID)
	return s.issueSession(&profile)
}

// LoginSuperAdmin signs in the platform operator. Credentials come from the
// environment rather than the store, so a wiped database never locks the
// operator out. The operator profile is written on first login so other
// services can resolve the caller like any other user.
func (s *AuthService) LoginSuperAdmin(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email != normalizeEmail(s.env.SUPER_ADMIN_EMAIL) ||
		s.env.SUPER_ADMIN_PASSWORD == "" || password != s.env.SUPER_ADMIN_PASSWORD {
		return nil, accessDeniedf("invalid credentials")
	}

	profile := model.UserProfile{
		UID:           SuperAdminUID,
		InstitutionID: SuperAdminInstitutionID,
		Name:          "Super Admin",
		Email:         email,
		Role:          model.RoleSuperAdmin,
		Avatar:        model.DefaultAvatar("Super Admin"),
		Bio:           "Platform Operator",
	}
	if err := s.store.Put(ctx, database.CollectionUsers, profile.UID, profile); err != nil {
		return nil, storeErr(err)
	}

	return s.issueSession(&profile)
}

func (s *AuthService) issueSession(profile *model.UserProfile) (*Session, error) {
	access, _, err := s.jwt.GenerateAccessToken(profile.UID, profile.InstitutionID, string(profile.Role))
	if err != nil {
		return nil, transportErrf("sign access token: %v", err)
	}
	refresh, _, err := s.jwt.GenerateRefreshToken(profile.UID, profile.InstitutionID, string(profile.Role))
	if err != nil {
		return nil, transportErrf("sign refresh token: %v", err)
	}

	expiresIn := int64(0)
	if exp, err := s.jwt.GetTokenExpiry(access); err == nil {
		expiresIn = int64(time.Until(exp).Seconds())
	}

	return &Session{
		Profile:      profile,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
	}, nil
}

// Refresh exchanges a valid, non-revoked refresh token for a fresh access
// token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.ValidateToken(refreshToken)
	if err != nil {
		return "", accessDeniedf("invalid refresh token")
	}
	if claims.TokenType != "refresh" {
		return "", accessDeniedf("not a refresh token")
	}
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			log.Printf("blacklist lookup failed: %v", err)
		} else if revoked {
			return "", accessDeniedf("refresh token has been revoked")
		}
	}

	access, _, err := s.jwt.RefreshAccessToken(refreshToken)
	if err != nil {
		return "", accessDeniedf("invalid refresh token")
	}
	return access, nil
}

// Logout revokes the presented token for the remainder of its lifetime.
// Without a blacklist backend logout is a client-side operation only.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return accessDeniedf("invalid token")
	}
	if s.blacklist == nil {
		return nil
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.blacklist.RevokeToken(ctx, claims.ID, expiresAt, "logout"); err != nil {
		return transportErrf("revoke token: %v", err)
	}
	return nil
}

// WatchSession invokes fn with the current profile immediately, then again
// whenever the profile changes, until ctx is cancelled. If the profile is
// blocked or deleted, fn receives nil and the watch stops: the session is
// considered forcibly ended. A store that is merely unreachable is not a
// missing profile, so those polls are skipped and retried on the next tick.
func (s *AuthService) WatchSession(ctx context.Context, uid string, interval time.Duration, fn func(*model.UserProfile)) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	// load reports the live profile, nil when the session has ended, or an
	// error when the store could not answer.
	load := func() (*model.UserProfile, error) {
		var p model.UserProfile
		if err := s.store.Get(ctx, database.CollectionUsers, uid, &p); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if p.Blocked {
			return nil, nil
		}
		return &p, nil
	}

	var current *model.UserProfile
	seeded := false

	// poll reports whether the watch should keep running.
	poll := func() bool {
		next, err := load()
		if err != nil {
			log.Printf("session watch for %s: profile load failed: %v", uid, err)
			return true
		}
		if next == nil {
			fn(nil)
			return false
		}
		if !seeded || !reflect.DeepEqual(next, current) {
			current = next
			seeded = true
			fn(next)
		}
		return true
	}

	if !poll() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !poll() {
				return
			}
		}
	}
}

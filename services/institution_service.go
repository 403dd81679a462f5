package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
	"github.com/squadran/squadran-api/utils/cache"
)

// DefaultThemeColor is applied when an institution is created without one.
const DefaultThemeColor = "#4AA4F2"

// DefaultLogo is the placeholder logo for institutions onboarded without one.
const DefaultLogo = "https://cdn-icons-png.flaticon.com/512/3135/3135715.png"

// themePalette is the fixed set a theme color is picked from when an
// onboarding request is approved.
var themePalette = []string{"#FF725E", "#4AA4F2", "#6C63FF", "#43D9AD", "#FFC75F"}

// institutionListKey caches the full institution list; the login screen
// fetches it on every visit.
const institutionListKey = "institutions:all"

const institutionListTTL = 5 * time.Minute

// InstitutionService owns the tenant directory and the onboarding lifecycle.
type InstitutionService struct {
	store database.Storage
	cache *cache.RedisCache // nil when Redis is not configured
}

// NewInstitutionService creates a new institution service
func NewInstitutionService(store database.Storage, redisCache *cache.RedisCache) *InstitutionService {
	return &InstitutionService{store: store, cache: redisCache}
}

// List returns every onboarded institution. Order is unspecified. The result
// is served from cache when available; tenant changes invalidate it.
func (s *InstitutionService) List(ctx context.Context) ([]model.Institution, error) {
	var insts []model.Institution
	if s.cache != nil {
		if err := s.cache.GetJSON(ctx, institutionListKey, &insts); err == nil {
			return insts, nil
		}
	}

	if err := s.store.List(ctx, database.CollectionInstitutions, &insts); err != nil {
		return nil, storeErr(err)
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, institutionListKey, insts, institutionListTTL); err != nil {
			log.Printf("institution list cache write failed: %v", err)
		}
	}
	return insts, nil
}

func (s *InstitutionService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, institutionListKey); err != nil {
		log.Printf("institution list cache invalidation failed: %v", err)
	}
}

// GetByCode resolves an institution by its short code, ignoring case and
// surrounding whitespace. The store cannot express case-insensitive matching,
// so this scans the (small) institutions collection.
func (s *InstitutionService) GetByCode(ctx context.Context, code string) (*model.Institution, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, validationf("institution code is required")
	}

	insts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range insts {
		if strings.ToUpper(strings.TrimSpace(insts[i].Code)) == normalized {
			return &insts[i], nil
		}
	}
	return nil, ErrNotFound
}

// GetByID fetches one institution.
func (s *InstitutionService) GetByID(ctx context.Context, id string) (*model.Institution, error) {
	var inst model.Institution
	if err := s.store.Get(ctx, database.CollectionInstitutions, id, &inst); err != nil {
		return nil, storeErr(err)
	}
	return &inst, nil
}

// CreateInstitutionInput carries the super-admin onboarding form.
type CreateInstitutionInput struct {
	Name        string
	Code        string
	Logo        string
	Description string
	ThemeColor  string
	EmailDomain string
}

// Create onboards a new tenant and seeds its feed with the welcome post. Both
// documents are written in one store transaction. Caller must be the super
// admin. Duplicate codes (case-insensitive) are rejected.
func (s *InstitutionService) Create(ctx context.Context, caller *model.UserProfile, in CreateInstitutionInput) (*model.Institution, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Code) == "" {
		return nil, validationf("institution name and code are required")
	}

	if _, err := s.GetByCode(ctx, in.Code); err == nil {
		return nil, conflictf("institution code %q already in use", in.Code)
	} else if err != ErrNotFound {
		return nil, err
	}

	inst := model.Institution{
		ID:          "inst_" + uuid.New().String(),
		Name:        in.Name,
		Code:        in.Code,
		Logo:        in.Logo,
		Description: in.Description,
		ThemeColor:  in.ThemeColor,
		EmailDomain: in.EmailDomain,
	}
	if inst.Logo == "" {
		inst.Logo = DefaultLogo
	}
	if inst.ThemeColor == "" {
		inst.ThemeColor = DefaultThemeColor
	}

	welcome := model.Post{
		ID:            "post_" + uuid.New().String(),
		InstitutionID: inst.ID,
		AuthorID:      "system",
		AuthorName:    fmt.Sprintf("%s Admin", inst.Code),
		AuthorRole:    model.RoleInstitutionAdmin,
		Title:         fmt.Sprintf("Welcome to %s", inst.Name),
		Content:       fmt.Sprintf("Welcome to the official %s social platform powered by Squadran.", inst.Name),
		Timestamp:     model.NowMillis(),
		LikedBy:       []string{},
		Comments:      []model.Comment{},
		Status:        model.PostVerified,
		Type:          model.PostNewsletter,
	}

	err := s.store.RunInTransaction(ctx, func(tx database.Storage) error {
		if err := tx.Put(ctx, database.CollectionInstitutions, inst.ID, inst); err != nil {
			return err
		}
		return tx.Put(ctx, database.CollectionPosts, welcome.ID, welcome)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	s.invalidateListCache(ctx)
	return &inst, nil
}

// Delete de-boards a tenant. Policy: the cascade removes the tenant's user
// profiles, credential records and posts along with the institution itself,
// so no orphaned tenant data is left behind. Super admin only.
func (s *InstitutionService) Delete(ctx context.Context, caller *model.UserProfile, instID string) error {
	if err := requireSuperAdmin(caller); err != nil {
		return err
	}

	err := s.store.RunInTransaction(ctx, func(tx database.Storage) error {
		if err := tx.Delete(ctx, database.CollectionInstitutions, instID); err != nil {
			return err
		}
		if err := tx.DeleteWhere(ctx, database.CollectionUsers, database.Eq("institutionId", instID)); err != nil {
			return err
		}
		if err := tx.DeleteWhere(ctx, database.CollectionAccounts, database.Eq("institutionId", instID)); err != nil {
			return err
		}
		return tx.DeleteWhere(ctx, database.CollectionPosts, database.Eq("institutionId", instID))
	})
	if err != nil {
		return storeErr(err)
	}
	s.invalidateListCache(ctx)
	return nil
}

// SubmitOnboardingRequest records a prospective institution's application.
// Public: no caller context.
func (s *InstitutionService) SubmitOnboardingRequest(ctx context.Context, instituteName, email, contactName string) (*model.OnboardingRequest, error) {
	if strings.TrimSpace(instituteName) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(contactName) == "" {
		return nil, validationf("institute name, email and contact name are required")
	}

	req := model.OnboardingRequest{
		ID:            "req_" + uuid.New().String(),
		InstituteName: instituteName,
		ContactName:   contactName,
		Email:         email,
		Status:        model.RequestPending,
	}
	if err := s.store.Put(ctx, database.CollectionRequests, req.ID, req); err != nil {
		return nil, storeErr(err)
	}
	return &req, nil
}

// PendingRequests lists requests awaiting a decision. Super admin only.
func (s *InstitutionService) PendingRequests(ctx context.Context, caller *model.UserProfile) ([]model.OnboardingRequest, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}

	var reqs []model.OnboardingRequest
	err := s.store.List(ctx, database.CollectionRequests, &reqs,
		database.Eq("status", string(model.RequestPending)))
	if err != nil {
		return nil, storeErr(err)
	}
	return reqs, nil
}

// ApproveRequest flips a pending request to APPROVED and onboards the
// institution: code is the first four letters of the institute name
// uppercased, theme color is picked from the fixed palette. Super admin only.
func (s *InstitutionService) ApproveRequest(ctx context.Context, caller *model.UserProfile, requestID string) (*model.Institution, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}

	var req model.OnboardingRequest
	if err := s.store.Get(ctx, database.CollectionRequests, requestID, &req); err != nil {
		return nil, storeErr(err)
	}
	if req.Status != model.RequestPending {
		return nil, conflictf("request %s already %s", requestID, req.Status)
	}

	code := []rune(req.InstituteName)
	if len(code) > 4 {
		code = code[:4]
	}
	// Onboard the institution before flipping the request: if Create fails
	// (say the derived code collides with an existing tenant) the request
	// stays PENDING and the approval can be retried.
	inst, err := s.Create(ctx, caller, CreateInstitutionInput{
		Name:        req.InstituteName,
		Code:        strings.ToUpper(string(code)),
		Description: "Partner Institution",
		ThemeColor:  themePalette[rand.Intn(len(themePalette))],
		EmailDomain: req.EmailDomain,
	})
	if err != nil {
		return nil, err
	}

	req.Status = model.RequestApproved
	if err := s.store.Put(ctx, database.CollectionRequests, req.ID, req); err != nil {
		return nil, storeErr(err)
	}
	return inst, nil
}

func requireSuperAdmin(caller *model.UserProfile) error {
	if caller == nil || caller.Role != model.RoleSuperAdmin {
		return accessDeniedf("super admin privileges required")
	}
	return nil
}

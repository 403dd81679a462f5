package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
)

// UserService owns the peer directory and institution-level user moderation.
type UserService struct {
	store database.Storage
}

// NewUserService creates a new user service
func NewUserService(store database.Storage) *UserService {
	return &UserService{store: store}
}

// GetByID fetches one profile.
func (s *UserService) GetByID(ctx context.Context, uid string) (*model.UserProfile, error) {
	var user model.UserProfile
	if err := s.store.Get(ctx, database.CollectionUsers, uid, &user); err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

// Directory lists the peers a user can network with: everyone in the same
// institution except the caller, institution admins and blocked accounts.
func (s *UserService) Directory(ctx context.Context, caller *model.UserProfile) ([]model.UserProfile, error) {
	if caller == nil {
		return nil, accessDeniedf("authentication required")
	}

	var users []model.UserProfile
	err := s.store.List(ctx, database.CollectionUsers, &users,
		database.Eq("institutionId", caller.InstitutionID))
	if err != nil {
		return nil, storeErr(err)
	}

	peers := make([]model.UserProfile, 0, len(users))
	for _, u := range users {
		if u.UID == caller.UID || u.Role == model.RoleInstitutionAdmin || u.Blocked {
			continue
		}
		peers = append(peers, u)
	}
	return peers, nil
}

// AdminList is the moderation view of an institution's members: blocked
// accounts included, admin accounts (institution or super) excluded.
func (s *UserService) AdminList(ctx context.Context, caller *model.UserProfile, institutionID string) ([]model.UserProfile, error) {
	if err := requireInstitutionAdmin(caller, institutionID); err != nil {
		return nil, err
	}

	var users []model.UserProfile
	err := s.store.List(ctx, database.CollectionUsers, &users,
		database.Eq("institutionId", institutionID))
	if err != nil {
		return nil, storeErr(err)
	}

	members := make([]model.UserProfile, 0, len(users))
	for _, u := range users {
		if u.Role == model.RoleInstitutionAdmin || u.Role == model.RoleSuperAdmin {
			continue
		}
		members = append(members, u)
	}
	return members, nil
}

// ToggleBlock flips a member's blocked flag and returns the updated profile.
// Admin of the member's institution only.
func (s *UserService) ToggleBlock(ctx context.Context, caller *model.UserProfile, uid string) (*model.UserProfile, error) {
	var updated model.UserProfile
	err := s.store.Mutate(ctx, database.CollectionUsers, uid, func(raw []byte) (interface{}, error) {
		var user model.UserProfile
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, err
		}
		if err := requireInstitutionAdmin(caller, user.InstitutionID); err != nil {
			return nil, err
		}
		user.Blocked = !user.Blocked
		updated = user
		return user, nil
	})
	if err != nil {
		return nil, storeErrOrDomain(err)
	}
	return &updated, nil
}

// Delete removes a member's profile and credential record. Admin of the
// member's institution only.
func (s *UserService) Delete(ctx context.Context, caller *model.UserProfile, uid string) error {
	var user model.UserProfile
	if err := s.store.Get(ctx, database.CollectionUsers, uid, &user); err != nil {
		return storeErr(err)
	}
	if err := requireInstitutionAdmin(caller, user.InstitutionID); err != nil {
		return err
	}

	err := s.store.RunInTransaction(ctx, func(tx database.Storage) error {
		if err := tx.Delete(ctx, database.CollectionUsers, uid); err != nil {
			return err
		}
		return tx.Delete(ctx, database.CollectionAccounts, uid)
	})
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// UpdateProfileInput carries the editable profile fields. InstitutionID,
// role and the blocked flag are deliberately absent: the first two are
// immutable, the last is admin-only via ToggleBlock.
type UpdateProfileInput struct {
	Name   *string
	Avatar *string
	Batch  *string
	Bio    *string
}

// UpdateProfile applies a member's own edits to their profile.
func (s *UserService) UpdateProfile(ctx context.Context, caller *model.UserProfile, in UpdateProfileInput) (*model.UserProfile, error) {
	if caller == nil {
		return nil, accessDeniedf("authentication required")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, validationf("name cannot be empty")
	}

	var updated model.UserProfile
	err := s.store.Mutate(ctx, database.CollectionUsers, caller.UID, func(raw []byte) (interface{}, error) {
		var user model.UserProfile
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, err
		}
		if in.Name != nil {
			user.Name = *in.Name
		}
		if in.Avatar != nil {
			user.Avatar = *in.Avatar
		}
		if in.Batch != nil {
			user.Batch = *in.Batch
		}
		if in.Bio != nil {
			user.Bio = *in.Bio
		}
		updated = user
		return user, nil
	})
	if err != nil {
		return nil, storeErrOrDomain(err)
	}
	return &updated, nil
}

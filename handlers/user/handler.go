package user

import (
	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/services"
	"github.com/squadran/squadran-api/utils/middleware"
	"github.com/squadran/squadran-api/utils/response"
)

// UserHandler serves the member directory, profile edits and admin member
// management
type UserHandler struct {
	svc *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Me returns the caller's own profile
func (h *UserHandler) Me(c *fiber.Ctx) error {
	return response.Success(c, middleware.CurrentProfile(c))
}

// GetByID returns one profile by uid
func (h *UserHandler) GetByID(c *fiber.Ctx) error {
	profile, err := h.svc.GetByID(c.Context(), c.Params("uid"))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, profile)
}

// Directory lists the caller's fellow members: same institution, admins and
// blocked users excluded, the caller excluded
func (h *UserHandler) Directory(c *fiber.Ctx) error {
	users, err := h.svc.Directory(c.Context(), middleware.CurrentProfile(c))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, users)
}

// AdminList lists an institution's members for administration, blocked
// users included
func (h *UserHandler) AdminList(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	institutionID := c.Query("institutionId", profile.InstitutionID)

	users, err := h.svc.AdminList(c.Context(), profile, institutionID)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, users)
}

// ToggleBlock flips a member's blocked flag
func (h *UserHandler) ToggleBlock(c *fiber.Ctx) error {
	updated, err := h.svc.ToggleBlock(c.Context(), middleware.CurrentProfile(c), c.Params("uid"))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, updated)
}

// Delete removes a member's profile and credentials
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), middleware.CurrentProfile(c), c.Params("uid")); err != nil {
		return response.ServiceError(c, err)
	}
	return response.NoContent(c)
}

// UpdateRequest carries the editable profile fields. Absent fields are left
// untouched; institution and role are never editable.
type UpdateRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
	Batch  *string `json:"batch"`
	Bio    *string `json:"bio"`
}

// UpdateProfile applies the caller's own profile edits
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var req UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	updated, err := h.svc.UpdateProfile(c.Context(), middleware.CurrentProfile(c), services.UpdateProfileInput{
		Name:   req.Name,
		Avatar: req.Avatar,
		Batch:  req.Batch,
		Bio:    req.Bio,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, updated)
}

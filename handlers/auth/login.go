package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/services"
	"github.com/squadran/squadran-api/utils/response"
)

// LoginRequest represents a member login request
type LoginRequest struct {
	InstitutionID string `json:"institutionId" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required"`
}

// SuperAdminLoginRequest carries the platform operator's credentials
type SuperAdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginStudent handles student login
func (h *AuthHandler) LoginStudent(c *fiber.Ctx) error {
	return h.login(c, h.svc.LoginStudent)
}

// LoginAlumni handles alumni login
func (h *AuthHandler) LoginAlumni(c *fiber.Ctx) error {
	return h.login(c, h.svc.LoginAlumni)
}

// LoginInstAdmin handles institution administrator login
func (h *AuthHandler) LoginInstAdmin(c *fiber.Ctx) error {
	return h.login(c, h.svc.LoginInstAdmin)
}

func (h *AuthHandler) login(c *fiber.Ctx, authenticate func(ctx context.Context, institutionID, email, password string) (*services.Session, error)) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ip := c.IP()
	session, err := authenticate(c.Context(), req.InstitutionID, req.Email, req.Password)
	if err != nil {
		if h.bruteForce != nil && errors.Is(err, services.ErrAccessDenied) {
			h.bruteForce.RecordFailedAttempt(c, ip)
		}
		return response.ServiceError(c, err)
	}

	if h.bruteForce != nil {
		h.bruteForce.RecordSuccessfulAttempt(c, ip)
	}
	return response.Success(c, session)
}

// LoginSuperAdmin handles platform operator login
func (h *AuthHandler) LoginSuperAdmin(c *fiber.Ctx) error {
	var req SuperAdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ip := c.IP()
	session, err := h.svc.LoginSuperAdmin(c.Context(), req.Email, req.Password)
	if err != nil {
		if h.bruteForce != nil && errors.Is(err, services.ErrAccessDenied) {
			h.bruteForce.RecordFailedAttempt(c, ip)
		}
		return response.ServiceError(c, err)
	}

	if h.bruteForce != nil {
		h.bruteForce.RecordSuccessfulAttempt(c, ip)
	}
	return response.Success(c, session)
}

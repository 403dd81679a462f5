package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/services"
	"github.com/squadran/squadran-api/utils/response"
	"github.com/squadran/squadran-api/utils/validation"
)

// SignupStudent handles student registration
func (h *AuthHandler) SignupStudent(c *fiber.Ctx) error {
	return h.signup(c, h.svc.SignupStudent)
}

// SignupAlumni handles alumni registration
func (h *AuthHandler) SignupAlumni(c *fiber.Ctx) error {
	return h.signup(c, h.svc.SignupAlumni)
}

func (h *AuthHandler) signup(c *fiber.Ctx, register func(ctx context.Context, in services.SignupInput) (*services.Session, error)) error {
	var req services.SignupInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if !validation.ValidateEmail(req.Email) {
		return response.BadRequest(c, "Invalid email format")
	}

	session, err := register(c.Context(), req)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Created(c, session)
}

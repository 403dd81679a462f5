package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/utils/response"
)

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Refresh exchanges a refresh token for a new access token
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return response.BadRequest(c, "Refresh token is required")
	}

	access, err := h.svc.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, fiber.Map{"accessToken": access})
}

// Logout revokes the presented access token
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return response.Unauthorized(c, "Invalid authorization format")
	}

	if err := h.svc.Logout(c.Context(), parts[1]); err != nil {
		return response.ServiceError(c, err)
	}
	return response.SuccessWithMessage(c, "Logged out", nil)
}

package auth

import (
	"github.com/squadran/squadran-api/services"
	"github.com/squadran/squadran-api/utils/middleware"
	"github.com/squadran/squadran-api/utils/validation"
)

// AuthHandler serves signup, login and session endpoints
type AuthHandler struct {
	svc        *services.AuthService
	bruteForce *middleware.BruteForceProtection
	validator  *validation.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *services.AuthService, bruteForce *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		svc:        svc,
		bruteForce: bruteForce,
		validator:  validation.NewValidator(),
	}
}

package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/database"
	"github.com/squadran/squadran-api/model"
	"github.com/squadran/squadran-api/utils/auth"
	"github.com/squadran/squadran-api/utils/response"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	store            database.Storage
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, blacklist *auth.BlacklistService, store database.Storage) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: blacklist,
		store:            store,
	}
}

// Required is middleware that requires a valid JWT token. The caller's
// profile is loaded on every request so a block takes effect immediately,
// not at token expiry.
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization token")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Unauthorized(c, "Invalid authorization format")
		}

		tokenString := parts[1]

		claims, err := m.jwtManager.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				return response.Unauthorized(c, "Token has expired")
			}
			return response.Unauthorized(c, "Invalid token")
		}

		if claims.TokenType != "access" {
			return response.Unauthorized(c, "Invalid token type")
		}

		// Check if token is revoked (blacklisted)
		if m.blacklistService != nil {
			isRevoked, err := m.blacklistService.IsTokenRevoked(c.Context(), claims.ID)
			if err != nil {
				return response.InternalServerError(c, "Failed to check token status")
			}
			if isRevoked {
				return response.Unauthorized(c, "Token has been revoked")
			}
		}

		var profile model.UserProfile
		if err := m.store.Get(c.Context(), database.CollectionUsers, claims.UID, &profile); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return response.Unauthorized(c, "User not found")
			}
			return response.InternalServerError(c, "Failed to load user")
		}

		if profile.Blocked {
			return response.Forbidden(c, "This account has been blocked by an administrator")
		}

		c.Locals("user_id", profile.UID)
		c.Locals("institution_id", profile.InstitutionID)
		c.Locals("user_role", string(profile.Role))
		c.Locals("claims", claims)
		c.Locals("profile", &profile)
		c.Locals("token_jti", claims.ID)

		return c.Next()
	}
}

// RequireRole restricts a route to the given roles. Must run after Required.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile := CurrentProfile(c)
		if profile == nil {
			return response.Unauthorized(c, "")
		}
		for _, role := range roles {
			if profile.Role == role {
				return c.Next()
			}
		}
		return response.Forbidden(c, "Insufficient role")
	}
}

// RequireSuperAdmin restricts a route to the platform operator
func (m *AuthMiddleware) RequireSuperAdmin() fiber.Handler {
	return m.RequireRole(model.RoleSuperAdmin)
}

// RequireInstitutionAdmin restricts a route to institution admins and the
// platform operator
func (m *AuthMiddleware) RequireInstitutionAdmin() fiber.Handler {
	return m.RequireRole(model.RoleInstitutionAdmin, model.RoleSuperAdmin)
}

// CurrentProfile returns the authenticated caller's profile, or nil when the
// request did not pass Required.
func CurrentProfile(c *fiber.Ctx) *model.UserProfile {
	profile, _ := c.Locals("profile").(*model.UserProfile)
	return profile
}

// CurrentJTI returns the token id of the presented access token
func CurrentJTI(c *fiber.Ctx) string {
	jti, _ := c.Locals("token_jti").(string)
	return jti
}

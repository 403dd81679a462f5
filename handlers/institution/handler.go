package institution

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/services"
	"github.com/squadran/squadran-api/services/media"
	"github.com/squadran/squadran-api/utils/middleware"
	"github.com/squadran/squadran-api/utils/response"
	"github.com/squadran/squadran-api/utils/validation"
)

// InstitutionHandler serves tenant discovery, onboarding and super admin
// tenant management
type InstitutionHandler struct {
	svc       *services.InstitutionService
	uploader  *media.Uploader // nil when Spaces is not configured
	validator *validation.Validator
}

// NewInstitutionHandler creates a new institution handler
func NewInstitutionHandler(svc *services.InstitutionService, uploader *media.Uploader) *InstitutionHandler {
	return &InstitutionHandler{
		svc:       svc,
		uploader:  uploader,
		validator: validation.NewValidator(),
	}
}

// List returns every registered institution. Public: the login screen needs
// it before any session exists.
func (h *InstitutionHandler) List(c *fiber.Ctx) error {
	institutions, err := h.svc.List(c.Context())
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, institutions)
}

// GetByCode resolves a short code (case-insensitive) to an institution
func (h *InstitutionHandler) GetByCode(c *fiber.Ctx) error {
	inst, err := h.svc.GetByCode(c.Context(), c.Params("code"))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, inst)
}

// GetByID returns one institution by id
func (h *InstitutionHandler) GetByID(c *fiber.Ctx) error {
	inst, err := h.svc.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, inst)
}

// CreateRequest represents a super admin tenant creation request
type CreateRequest struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required"`
	Logo        string `json:"logo"`
	Description string `json:"description"`
	ThemeColor  string `json:"themeColor"`
	EmailDomain string `json:"emailDomain"`
}

// Create registers a new institution together with its welcome post
func (h *InstitutionHandler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if ok, msg := validation.ValidateInstitutionCode(req.Code); !ok {
		return response.BadRequest(c, msg)
	}
	if req.ThemeColor != "" && !validation.ValidateThemeColor(req.ThemeColor) {
		return response.BadRequest(c, "Theme color must be a #RRGGBB value")
	}

	inst, err := h.svc.Create(c.Context(), middleware.CurrentProfile(c), services.CreateInstitutionInput{
		Name:        req.Name,
		Code:        req.Code,
		Logo:        req.Logo,
		Description: req.Description,
		ThemeColor:  req.ThemeColor,
		EmailDomain: req.EmailDomain,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Created(c, inst)
}

// Delete removes an institution and all of its tenant data. Uploaded media
// is swept best-effort after the documents are gone.
func (h *InstitutionHandler) Delete(c *fiber.Ctx) error {
	instID := c.Params("id")
	if err := h.svc.Delete(c.Context(), middleware.CurrentProfile(c), instID); err != nil {
		return response.ServiceError(c, err)
	}
	if h.uploader != nil {
		if err := h.uploader.SweepInstitution(c.Context(), instID); err != nil {
			log.Printf("media sweep for %s failed: %v", instID, err)
		}
	}
	return response.NoContent(c)
}

package institution

import (
	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/utils/middleware"
	"github.com/squadran/squadran-api/utils/response"
	"github.com/squadran/squadran-api/utils/validation"
)

// OnboardingRequestBody is submitted by a prospective institution from the
// public landing page
type OnboardingRequestBody struct {
	InstituteName string `json:"instituteName" validate:"required"`
	ContactName   string `json:"contactName" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
}

// SubmitRequest files an onboarding request for super admin review
func (h *InstitutionHandler) SubmitRequest(c *fiber.Ctx) error {
	var req OnboardingRequestBody
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if !validation.ValidateEmail(req.Email) {
		return response.BadRequest(c, "Invalid email format")
	}

	request, err := h.svc.SubmitOnboardingRequest(c.Context(), req.InstituteName, req.Email, req.ContactName)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Created(c, request)
}

// PendingRequests lists onboarding requests awaiting review
func (h *InstitutionHandler) PendingRequests(c *fiber.Ctx) error {
	requests, err := h.svc.PendingRequests(c.Context(), middleware.CurrentProfile(c))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, requests)
}

// ApproveRequest converts a pending onboarding request into a live
// institution
func (h *InstitutionHandler) ApproveRequest(c *fiber.Ctx) error {
	inst, err := h.svc.ApproveRequest(c.Context(), middleware.CurrentProfile(c), c.Params("id"))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, inst)
}

package post

import (
	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/model"
	"github.com/squadran/squadran-api/services"
	"github.com/squadran/squadran-api/utils/middleware"
	"github.com/squadran/squadran-api/utils/response"
	"github.com/squadran/squadran-api/utils/validation"
)

// PostHandler serves the feed, job and events boards plus moderation
type PostHandler struct {
	svc       *services.PostService
	validator *validation.Validator
}

// NewPostHandler creates a new post handler
func NewPostHandler(svc *services.PostService) *PostHandler {
	return &PostHandler{
		svc:       svc,
		validator: validation.NewValidator(),
	}
}

// CreateRequest represents a post submission
type CreateRequest struct {
	Type    string `json:"type" validate:"required"`
	Title   string `json:"title"`
	Content string `json:"content" validate:"required"`
	Image   string `json:"image"`
	Company string `json:"company"`
	JobLink string `json:"jobLink"`
}

// Create submits a post into the caller's institution moderation queue
func (h *PostHandler) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	postType, ok := model.ParsePostType(req.Type)
	if !ok {
		return response.BadRequest(c, "Unknown post type")
	}

	post, err := h.svc.Create(c.Context(), middleware.CurrentProfile(c), services.CreatePostInput{
		Type:    postType,
		Title:   validation.SanitizeString(req.Title),
		Content: validation.SanitizeString(req.Content),
		Image:   req.Image,
		Company: req.Company,
		JobLink: req.JobLink,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Created(c, post)
}

// Feed returns the verified posts of one type for the caller's institution,
// newest first
func (h *PostHandler) Feed(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	postType, ok := model.ParsePostType(c.Query("type", string(model.PostNewsletter)))
	if !ok {
		return response.BadRequest(c, "Unknown post type")
	}

	posts, err := h.svc.Feed(c.Context(), profile.InstitutionID, postType, true)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, posts)
}

// Pending returns the institution's moderation queue
func (h *PostHandler) Pending(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	institutionID := c.Query("institutionId", profile.InstitutionID)

	posts, err := h.svc.Pending(c.Context(), profile, institutionID)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, posts)
}

// ByAuthor returns every post a user authored, any status
func (h *PostHandler) ByAuthor(c *fiber.Ctx) error {
	posts, err := h.svc.ByAuthor(c.Context(), c.Params("uid"))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, posts)
}

// Verify approves a pending post
func (h *PostHandler) Verify(c *fiber.Ctx) error {
	if err := h.svc.Verify(c.Context(), middleware.CurrentProfile(c), c.Params("id")); err != nil {
		return response.ServiceError(c, err)
	}
	return response.SuccessWithMessage(c, "Post verified", nil)
}

// Delete removes a post (rejection or takedown)
func (h *PostHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), middleware.CurrentProfile(c), c.Params("id")); err != nil {
		return response.ServiceError(c, err)
	}
	return response.NoContent(c)
}

// ToggleLike flips the caller's like on a post
func (h *PostHandler) ToggleLike(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	post, err := h.svc.ToggleLike(c.Context(), c.Params("id"), profile.UID)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, post)
}

// CommentRequest represents a comment submission
type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// AddComment appends a comment to a post
func (h *PostHandler) AddComment(c *fiber.Ctx) error {
	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	profile := middleware.CurrentProfile(c)
	comment, err := h.svc.AddComment(c.Context(), c.Params("id"), profile.UID, profile.Name, validation.SanitizeString(req.Text))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Created(c, comment)
}

package media

import (
	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/services/media"
	"github.com/squadran/squadran-api/utils/middleware"
	"github.com/squadran/squadran-api/utils/response"
)

// maxUploadBytes caps a single media upload at 8 MiB
const maxUploadBytes = 8 << 20

// MediaHandler serves media uploads (logos, avatars, post images)
type MediaHandler struct {
	uploader *media.Uploader // nil when Spaces is not configured
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(uploader *media.Uploader) *MediaHandler {
	return &MediaHandler{uploader: uploader}
}

// Upload stores one file and returns its public URL. The kind path segment
// selects the namespace: logos, avatars or posts.
func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	if h.uploader == nil {
		return response.ServiceUnavailable(c, "Media storage is not configured")
	}

	var kind media.Kind
	switch c.Params("kind") {
	case "logos":
		kind = media.KindLogo
	case "avatars":
		kind = media.KindAvatar
	case "posts":
		kind = media.KindPost
	default:
		return response.BadRequest(c, "Unknown media kind")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "A file field is required")
	}
	if fileHeader.Size > maxUploadBytes {
		return response.BadRequest(c, "File exceeds the 8 MiB upload limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.BadRequest(c, "Could not read uploaded file")
	}
	defer file.Close()

	profile := middleware.CurrentProfile(c)
	url, err := h.uploader.Upload(c.Context(), kind, profile.InstitutionID, fileHeader.Filename, file)
	if err != nil {
		return response.InternalServerError(c, "Upload failed")
	}

	return response.Created(c, fiber.Map{"url": url})
}

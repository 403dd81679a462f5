package message

import (
	"bufio"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/squadran/squadran-api/services"
	"github.com/squadran/squadran-api/utils/middleware"
	"github.com/squadran/squadran-api/utils/response"
	"github.com/squadran/squadran-api/utils/sse"
	"github.com/squadran/squadran-api/utils/validation"
)

// MessageHandler serves pairwise direct messaging, including the SSE stream
// for live delivery
type MessageHandler struct {
	svc       *services.MessageService
	validator *validation.Validator
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(svc *services.MessageService) *MessageHandler {
	return &MessageHandler{
		svc:       svc,
		validator: validation.NewValidator(),
	}
}

// SendRequest represents an outgoing direct message
type SendRequest struct {
	ReceiverID string `json:"receiverId" validate:"required"`
	Text       string `json:"text" validate:"required"`
}

// Send delivers a direct message to another user
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	msg, err := h.svc.Send(c.Context(), middleware.CurrentProfile(c), req.ReceiverID, validation.SanitizeString(req.Text))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Created(c, msg)
}

// Thread returns the full conversation between the caller and another user,
// oldest first
func (h *MessageHandler) Thread(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	msgs, err := h.svc.Thread(c.Context(), profile.UID, c.Params("uid"))
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, msgs)
}

// Conversations returns the uids the caller has exchanged messages with
func (h *MessageHandler) Conversations(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	counterparts, err := h.svc.Conversations(c.Context(), profile.UID)
	if err != nil {
		return response.ServiceError(c, err)
	}
	return response.Success(c, counterparts)
}

// Stream pushes incoming messages to the caller over SSE. Requires the
// Redis push backend; without it clients poll Thread instead.
func (h *MessageHandler) Stream(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	uid := profile.UID

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The Fiber context is not valid inside the stream writer
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		inbox := h.svc.Subscribe(ctx, uid)
		if inbox == nil {
			sse.SendError(w, services.ErrTransport)
			return
		}

		keepalive := time.NewTicker(25 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case msg, ok := <-inbox:
				if !ok {
					return
				}
				if err := sse.SendMessage(w, msg.ID, msg); err != nil {
					return
				}
			case <-keepalive.C:
				if err := sse.SendKeepAlive(w); err != nil {
					return
				}
			}
		}
	})

	return nil
}

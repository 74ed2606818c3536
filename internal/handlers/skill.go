package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"inspectbot/internal/models"
)

// Responder answers one conversational turn.
type Responder interface {
	Handle(ctx context.Context, req models.Request) models.Reply
}

// SkillHandler adapts the chatbot skill webhook to the dialogue engine.
type SkillHandler struct {
	engine Responder
	logger *zap.Logger
}

// NewSkillHandler creates a new skill handler.
func NewSkillHandler(engine Responder, logger *zap.Logger) *SkillHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SkillHandler{engine: engine, logger: logger.Named("skill")}
}

// Handle decodes a skill request, runs the turn and renders the reply. The
// payload is read loosely: missing or mistyped fields take their defaults, and
// a body that is not a JSON object is answered as a defaulted turn.
func (h *SkillHandler) Handle(c fiber.Ctx) error {
	req, err := models.DecodeSkillRequest(c.Body())
	if err != nil {
		h.logger.Warn("malformed skill request, answering with defaults", zap.Error(err))
	}

	reply := h.engine.Handle(c.Context(), req)
	return c.JSON(models.NewSkillResponse(reply))
}

// SkillUserKey returns the chatting user's id from a skill request body, or
// the default id when the body carries none.
func SkillUserKey(c fiber.Ctx) string {
	req, _ := models.DecodeSkillRequest(c.Body())
	return req.UserID
}

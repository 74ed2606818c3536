package handlers

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"inspectbot/internal/models"
)

// InfoStore reads crawled guidance popups.
type InfoStore interface {
	QueryInfo(ctx context.Context, category string) ([]models.InfoRecord, error)
}

// InfoHandler lists the guidance text stored for a category.
type InfoHandler struct {
	store  InfoStore
	logger *zap.Logger
}

// NewInfoHandler creates a new info handler.
func NewInfoHandler(store InfoStore, logger *zap.Logger) *InfoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InfoHandler{store: store, logger: logger}
}

// List handles GET /info/:category.
func (h *InfoHandler) List(c fiber.Ctx) error {
	category, err := url.PathUnescape(c.Params("category"))
	if err != nil || category == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid category")
	}

	records, err := h.store.QueryInfo(c.Context(), category)
	if err != nil {
		h.logger.Error("failed to query info", zap.String("category", category), zap.Error(err))
		return jsonError(c, fiber.StatusServiceUnavailable, "info unavailable")
	}
	if records == nil {
		records = []models.InfoRecord{}
	}
	return jsonSuccess(c, records)
}

package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"inspectbot/internal/models"
)

// StatusStore is the slice of the lookup store the status endpoints read.
type StatusStore interface {
	LastCrawlTime(ctx context.Context) (*time.Time, error)
	LatestCrawlLog(ctx context.Context) (*models.CrawlLog, error)
	Counts(ctx context.Context) (models.StoreCounts, error)
	Ping(ctx context.Context) error
}

// HealthHandler reports service health and data freshness.
type HealthHandler struct {
	store   StatusStore
	running func() bool
	title   string
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler. running reports whether an
// acquisition pass is in flight and may be nil.
func NewHealthHandler(store StatusStore, running func() bool, siteTitle string, logger *zap.Logger) *HealthHandler {
	if running == nil {
		running = func() bool { return false }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{store: store, running: running, title: siteTitle, logger: logger.Named("health")}
}

// lastCrawl formats the last crawl time, or "never".
func (h *HealthHandler) lastCrawl(ctx context.Context) (string, error) {
	t, err := h.store.LastCrawlTime(ctx)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "never", nil
	}
	return t.UTC().Format(time.RFC3339), nil
}

// Health handles GET /health.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	last, err := h.lastCrawl(c.Context())
	if err != nil {
		h.logger.Error("failed to read last crawl time", zap.Error(err))
		return jsonError(c, fiber.StatusServiceUnavailable, "store unavailable")
	}
	return c.JSON(fiber.Map{
		"status":     "ok",
		"last_crawl": last,
	})
}

// Status renders the HTML status page.
func (h *HealthHandler) Status(c fiber.Ctx) error {
	ctx := c.Context()

	last, err := h.lastCrawl(ctx)
	if err != nil {
		h.logger.Error("failed to read last crawl time", zap.Error(err))
		return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
	}
	latest, err := h.store.LatestCrawlLog(ctx)
	if err != nil {
		h.logger.Error("failed to read latest crawl log", zap.Error(err))
		return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
	}
	counts, err := h.store.Counts(ctx)
	if err != nil {
		h.logger.Error("failed to count records", zap.Error(err))
		return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
	}

	return c.Render("status", fiber.Map{
		"SiteTitle":    h.title,
		"LastCrawl":    last,
		"LatestLog":    latest,
		"Counts":       counts,
		"CrawlRunning": h.running(),
	})
}

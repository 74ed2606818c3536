package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"inspectbot/internal/crawler"
	"inspectbot/internal/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Signature-256"

const signaturePrefix = "sha256="

// CrawlRunner runs acquisition passes.
type CrawlRunner interface {
	Run(ctx context.Context) (*models.CrawlSummary, error)
	Running() bool
}

// CrawlHandler triggers acquisition passes on demand.
type CrawlHandler struct {
	runner CrawlRunner
	secret []byte
	// base outlives the request; triggered passes stop with it.
	base   context.Context
	logger *zap.Logger
}

// NewCrawlHandler creates a new crawl trigger handler. An empty secret
// disables the endpoint.
func NewCrawlHandler(base context.Context, runner CrawlRunner, secret string, logger *zap.Logger) *CrawlHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrawlHandler{
		runner: runner,
		secret: []byte(secret),
		base:   base,
		logger: logger.Named("crawl_trigger"),
	}
}

// Sign returns the header value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func (h *CrawlHandler) verify(header string, body []byte) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Trigger handles POST /admin/crawl. The pass runs in the background.
func (h *CrawlHandler) Trigger(c fiber.Ctx) error {
	if len(h.secret) == 0 {
		return jsonError(c, fiber.StatusServiceUnavailable, "crawl trigger is not configured")
	}
	if !h.verify(c.Get(SignatureHeader), c.Body()) {
		h.logger.Warn("rejected crawl trigger", zap.String("ip", c.IP()))
		return jsonError(c, fiber.StatusUnauthorized, "invalid signature")
	}
	if h.runner.Running() {
		return jsonError(c, fiber.StatusConflict, "a crawl is already running")
	}

	go func() {
		summary, err := h.runner.Run(h.base)
		switch {
		case errors.Is(err, crawler.ErrAlreadyRunning):
			h.logger.Info("triggered crawl skipped, another pass is running")
		case err != nil:
			h.logger.Error("triggered crawl failed", zap.Error(err))
		case summary != nil:
			h.logger.Info("triggered crawl finished",
				zap.String("run_id", summary.RunID), zap.String("status", summary.Status))
		}
	}()

	c.Status(fiber.StatusAccepted)
	return jsonSuccess(c, fiber.Map{"accepted": true})
}

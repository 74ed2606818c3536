package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
)

// Pinger checks that a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessHandler serves the Kubernetes liveness and readiness endpoints.
type ReadinessHandler struct {
	store Pinger
}

// NewReadinessHandler creates a new readiness handler.
func NewReadinessHandler(store Pinger) *ReadinessHandler {
	return &ReadinessHandler{store: store}
}

// Liveness handles the /healthz endpoint for Kubernetes liveness checks.
// Returns 200 OK if the application is running.
func (h *ReadinessHandler) Liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Readiness handles the /readyz endpoint for Kubernetes readiness checks.
// Returns 200 OK if the lookup store is reachable.
func (h *ReadinessHandler) Readiness(c fiber.Ctx) error {
	if err := h.store.Ping(c.Context()); err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "database unavailable")
	}

	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

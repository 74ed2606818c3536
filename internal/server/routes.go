package server

import (
	"context"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inspectbot/internal/handlers"
)

// Deps are the collaborators the routes are served by.
type Deps struct {
	Engine handlers.Responder
	Store  handlers.StatusStore
	// Info may be nil, which disables the info listing.
	Info handlers.InfoStore
	// Crawler may be nil, which disables the manual trigger.
	Crawler handlers.CrawlRunner
}

// RegisterRoutes registers all application routes. Background work started
// by a request is bound to ctx.
func (s *Server) RegisterRoutes(ctx context.Context, deps Deps) {
	skillHandler := handlers.NewSkillHandler(deps.Engine, s.Logger)
	readinessHandler := handlers.NewReadinessHandler(deps.Store)

	var running func() bool
	if deps.Crawler != nil {
		running = deps.Crawler.Running
	}
	healthHandler := handlers.NewHealthHandler(deps.Store, running, s.Cfg.SiteTitle, s.Logger)

	// Chatbot skill webhook
	s.App.Post("/chatbot", s.rateLimiter(), skillHandler.Handle)

	// Health and status
	s.App.Get("/health", healthHandler.Health)
	s.App.Get("/status", healthHandler.Status)
	s.App.Get("/healthz", readinessHandler.Liveness)
	s.App.Get("/readyz", readinessHandler.Readiness)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Crawled guidance popups
	if deps.Info != nil {
		s.App.Get("/info/:category", handlers.NewInfoHandler(deps.Info, s.Logger).List)
	}

	// Manual crawl trigger
	if deps.Crawler != nil {
		crawlHandler := handlers.NewCrawlHandler(ctx, deps.Crawler, s.Cfg.TriggerSecret, s.Logger)
		s.App.Post("/admin/crawl", crawlHandler.Trigger)
	} else {
		s.Logger.Info("crawl trigger disabled, no pipeline configured")
	}
}

package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/template/html/v3"
	"go.uber.org/zap"

	"inspectbot/internal/config"
	"inspectbot/internal/handlers"
	"inspectbot/internal/models"
	"inspectbot/views"
)

// Server wraps the Fiber app and configuration.
type Server struct {
	App    *fiber.App
	Cfg    *config.Config
	Logger *zap.Logger

	// limiterStorage backs the skill endpoint rate limiter; nil keeps it in memory.
	limiterStorage fiber.Storage
}

// Option customizes a Server.
type Option func(*Server)

// WithLimiterStorage shares rate limit counters through storage.
func WithLimiterStorage(storage fiber.Storage) Option {
	return func(s *Server) { s.limiterStorage = storage }
}

// New creates a new server with middleware configured.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	engine := html.NewFileSystem(http.FS(views.FS), ".html")
	engine.Reload(cfg.IsDev())

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"

			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
				message = e.Message
			} else {
				log.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			}

			return c.Status(code).JSON(fiber.Map{
				"status": "error",
				"error":  message,
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())

	if cfg.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Split(cfg.CORSOrigins, ","),
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			MaxAge:       86400,
		}))
	}

	s := &Server{
		App:    app,
		Cfg:    cfg,
		Logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// rateLimitedText answers turns refused by the limiter.
const rateLimitedText = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."

// rateLimiter limits skill requests per chatting user id. Limited turns get a
// skill reply rather than an error status.
func (s *Server) rateLimiter() fiber.Handler {
	limit := s.Cfg.RateLimit
	if limit <= 0 {
		limit = 30
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: 1 * time.Minute,
		Storage:    s.limiterStorage,
		KeyGenerator: func(c fiber.Ctx) string {
			return "chatbot:" + handlers.SkillUserKey(c)
		},
		LimitReached: func(c fiber.Ctx) error {
			s.Logger.Warn("skill rate limit reached", zap.String("user_id", handlers.SkillUserKey(c)))
			return c.JSON(models.NewSkillResponse(models.Reply{
				Text:            rateLimitedText,
				SuggestedInputs: []string{"처음으로"},
			}))
		},
	})
}

// Start listens on the configured address. It blocks until Shutdown.
func (s *Server) Start() error {
	s.Logger.Info("starting server", zap.String("addr", s.Cfg.ServerAddr))
	return s.App.Listen(s.Cfg.ServerAddr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.App.Shutdown()
}

// Package api assembles the HTTP surface of the insights service.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/legaldesk/insights/internal/api/handlers"
	"github.com/legaldesk/insights/internal/engine"
	"github.com/legaldesk/insights/internal/metrics"
	"github.com/legaldesk/insights/internal/middleware/ratelimit"
	"github.com/legaldesk/insights/internal/middleware/security"
	"github.com/legaldesk/insights/internal/middleware/validation"
)

type Options struct {
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	BodyLimit     int
	AccessLog     bool
	RateLimit     ratelimit.Config
	Headers       security.HeadersConfig
	Validation    validation.Config
	ExposeMetrics bool
}

// Server is the fiber app plus the middleware state that must be stopped with it.
type Server struct {
	App     *fiber.App
	limiter *ratelimit.RateLimiter
}

func NewServer(e *engine.Engine, db handlers.Pinger, opts Options) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		BodyLimit:    opts.BodyLimit,
	})

	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(security.HeadersMiddleware(opts.Headers))

	limiter := ratelimit.New(opts.RateLimit)

	suggestionsHandler := handlers.NewSuggestionsHandler(e)
	userHandler := handlers.NewUserHandler(e)
	documentHandler := handlers.NewDocumentHandler(e)
	modelHandler := handlers.NewModelHandler(e, db)

	if opts.ExposeMetrics {
		app.Get("/metrics", metrics.MetricsHandler())
	}

	api := app.Group("/api/v1")
	api.Get("/health", modelHandler.Health)

	scored := api.Group("", limiter.Middleware(), validation.Middleware(opts.Validation))

	scored.Post("/suggestions", suggestionsHandler.GenerateSuggestions)

	scored.Get("/users/:id/prediction", userHandler.PredictBehavior)
	scored.Get("/users/:id/recommendations", userHandler.Recommendations)
	scored.Post("/users/:id/fraud-check", userHandler.FraudCheck)

	scored.Post("/documents/:id/classify", documentHandler.ClassifyDocument)

	scored.Post("/models/train", modelHandler.Train)
	scored.Get("/models/performance", modelHandler.Performance)
	scored.Get("/models/:type/weights", modelHandler.Weights)

	return &Server{App: app, limiter: limiter}
}

func (s *Server) Listen(addr string) error {
	return s.App.Listen(addr)
}

func (s *Server) Shutdown() error {
	s.limiter.Stop()
	return s.App.Shutdown()
}

// internal/server/app.go
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"forecast-narrator/internal/common/config"
	"forecast-narrator/internal/common/logger"
	"forecast-narrator/internal/forecast"
)

const requestIDLocal = forecast.RequestIDLocal

// Options are the collaborators the HTTP application is built from.
type Options struct {
	Config      *config.Config
	Logger      logger.Logger
	Forecast    *forecast.Handler
	RateLimiter *RateLimiter
	Readiness   map[string]ReadinessCheck
}

// NewApp builds the fiber application with middleware and every route mounted.
func NewApp(opts Options) *fiber.App {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	fiberCfg := fiber.Config{
		AppName:               opts.Config.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          NewErrorHandler(log),
	}
	if opts.Config.Server.BodyLimit > 0 {
		fiberCfg.BodyLimit = opts.Config.Server.BodyLimit
	}
	app := fiber.New(fiberCfg)

	app.Use(sanitizeRequestID())
	app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDLocal,
	}))
	app.Use(accessLog(log))
	app.Use(recover.New())

	app.Get("/health", healthHandler)
	app.Get("/ready", readyHandler(opts.Readiness))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	var limits []fiber.Handler
	if opts.RateLimiter != nil {
		limits = append(limits, opts.RateLimiter.Handler())
	}
	opts.Forecast.Register(app, limits...)

	return app
}

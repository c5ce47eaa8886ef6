// internal/forecast/handler.go
package forecast

import (
	"github.com/gofiber/fiber/v2"

	"forecast-narrator/internal/common/logger"
)

// RequestIDLocal is the fiber Locals key holding the request id.
const RequestIDLocal = "requestid"

// Handler exposes the Service over HTTP. Errors are returned to fiber and
// rendered by the application's error handler.
type Handler struct {
	service *Service
	logger  logger.Logger
}

// NewHandler creates the HTTP handler for service.
func NewHandler(service *Service, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handler{
		service: service,
		logger:  log.With(map[string]interface{}{"component": "forecast-handler"}),
	}
}

// Register mounts the forecast routes. middleware runs before the handler.
func (h *Handler) Register(router fiber.Router, middleware ...fiber.Handler) {
	handlers := append(middleware, h.CreateForecast)
	router.Post("/forecast", handlers...)
}

// CreateForecast handles POST /forecast.
func (h *Handler) CreateForecast(c *fiber.Ctx) error {
	requestID := requestIDOf(c)
	h.logger.Debug("forecast state", map[string]interface{}{
		"state":     StateReceived,
		"requestId": requestID,
		"bodyBytes": len(c.Body()),
	})

	req, err := h.service.ParseRequest(c.Body())
	if err != nil {
		return err
	}

	ctx := WithRequestID(c.UserContext(), requestID)
	result, err := h.service.Forecast(ctx, req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func requestIDOf(c *fiber.Ctx) string {
	if id, ok := c.Locals(RequestIDLocal).(string); ok && id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

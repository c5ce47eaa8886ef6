// internal/server/errors.go
package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	apperrors "forecast-narrator/internal/common/errors"
	"forecast-narrator/internal/common/logger"
	"forecast-narrator/internal/common/validation"
)

// NewErrorHandler renders every error as a JSON body with an "error" field.
// Validation failures also carry "details"; internal causes are only logged.
func NewErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiberErr.Message,
				"code":  statusCode(fiberErr.Code),
			})
		}

		stdErr := apperrors.Normalize(err)
		status := apperrors.HTTPStatus(stdErr.Code)

		fields := map[string]interface{}{
			"requestId": c.Locals(requestIDLocal),
			"method":    c.Method(),
			"path":      c.Path(),
			"status":    status,
			"errorCode": stdErr.Code,
			"category":  apperrors.GetErrorCategory(stdErr.Code),
			"retryable": stdErr.Retryable && apperrors.IsRetryableErrorCode(stdErr.Code),
		}
		if stdErr.Details != "" {
			fields["details"] = stdErr.Details
		}
		if status >= fiber.StatusInternalServerError {
			log.WithError(err).Error("request failed", fields)
		} else {
			log.Warn("request rejected", fields)
		}

		body := fiber.Map{
			"error": stdErr.Message,
			"code":  stdErr.Code,
		}
		if stdErr.Code == apperrors.ErrCodeRequestValidationFailed {
			details := stdErr.Violations
			if len(details) == 0 {
				details = []validation.Violation{validation.RootViolation("request body is invalid", "invalid_request")}
			}
			body["details"] = details
		}

		return c.Status(status).JSON(body)
	}
}

// statusCode turns 404 into NOT_FOUND, 413 into REQUEST_ENTITY_TOO_LARGE and so on.
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(utils.StatusMessage(status), " ", "_"))
}

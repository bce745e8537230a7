package server

import (
	"errors"
	"log/slog"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler maps every error reaching the pipeline onto one of the five client categories.
// The full context chain is logged; internal failures are logged as errors and counted.
func ErrorHandler(metrics *Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		err = classify(err)
		kind := apperr.KindOf(err)

		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", kind.Status(),
			"kind", kind.String(),
			"trace", apperr.Trace(err),
		}
		if kind == apperr.KindInternal {
			metrics.internalErrors.Inc()
			slog.Error("Request failed", attrs...)
		} else {
			slog.Info("Request rejected", attrs...)
		}

		return utils.ErrorResponse(c, err)
	}
}

// classify converts framework errors into categories. Errors already carrying a category pass through.
func classify(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	var fiberErr *fiber.Error
	if !errors.As(err, &fiberErr) {
		return apperr.WrapAs(apperr.KindInternal, err, "server.pipeline")
	}

	return apperr.WrapAs(kindOfStatus(fiberErr.Code), err, "server.pipeline", "status", fiberErr.Code)
}

func kindOfStatus(status int) apperr.Kind {
	switch status {
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return apperr.KindNotFound
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnsupportedMediaType,
		fiber.StatusRequestHeaderFieldsTooLarge, fiber.StatusLengthRequired:
		return apperr.KindBadRequest
	case fiber.StatusUnauthorized, fiber.StatusForbidden:
		return apperr.KindUnauthorized
	case fiber.StatusUnprocessableEntity:
		return apperr.KindInvalidInput
	default:
		return apperr.KindInternal
	}
}

func statusOf(err error) int {
	return apperr.KindOf(classify(err)).Status()
}

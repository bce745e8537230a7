package utils

import (
	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/gofiber/fiber/v2"
)

// SuccessResponse sends a success JSON response
func SuccessResponse(c *fiber.Ctx, data any, message string, code ...int) error {
	statusCode := fiber.StatusOK
	if len(code) > 0 {
		statusCode = code[0]
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"message": message,
	})
}

// ErrorResponse sends the client-facing body for err.
// Invalid input carries its field problems; every other category carries only its description.
func ErrorResponse(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInvalidInput {
		if fields := apperr.FieldsOf(err); len(fields) > 0 {
			return c.Status(kind.Status()).JSON(fields)
		}
	}

	return c.Status(kind.Status()).JSON(fiber.Map{
		"description": kind.Description(),
	})
}

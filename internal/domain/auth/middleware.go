package auth

import (
	"log/slog"
	"strings"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/gofiber/fiber/v2"
)

const (
	// PrincipalKey is the key used to store the principal in Fiber context
	PrincipalKey = "principal"
)

// Authenticate resolves the bearer token into a principal when one is present and valid.
// It never rejects a request; RequireSession does that for protected routes.
func Authenticate(validator *SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return c.Next()
		}

		principal, err := validator.Validate(token)
		if err != nil {
			slog.Debug("Session token rejected", "path", c.Path(), "trace", apperr.Trace(err))
			return c.Next()
		}

		c.Locals(PrincipalKey, principal)
		return c.Next()
	}
}

// RequireSession rejects requests without a valid, unrevoked principal before the handler runs
func RequireSession(checker *RevocationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := GetPrincipal(c)
		if principal == nil {
			return apperr.Unauthorized("missing or invalid session token")
		}

		if err := checker.Check(c.UserContext(), principal); err != nil {
			return err
		}

		return c.Next()
	}
}

// GetPrincipal extracts the principal from Fiber context
func GetPrincipal(c *fiber.Ctx) *Principal {
	principal, ok := c.Locals(PrincipalKey).(*Principal)
	if !ok {
		return nil
	}
	return principal
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrInvalidAuthorizationHeader
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidAuthorizationHeader
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrInvalidAuthorizationHeader
	}
	return token, nil
}

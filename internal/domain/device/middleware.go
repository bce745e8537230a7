package device

import (
	"strconv"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/gofiber/fiber/v2"
)

// Headers carrying a device challenge
const (
	HeaderDeviceID  = "Device-Id"
	HeaderTimestamp = "Timestamp"
	HeaderSignature = "Sign"
)

// RequireChallenge authenticates the calling device. It must run after auth.RequireSession.
func RequireChallenge(verifier *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := auth.GetPrincipal(c)
		if principal == nil {
			return apperr.Unauthorized("missing principal")
		}

		challenge, err := challengeFromHeaders(c)
		if err != nil {
			return err
		}

		if err := verifier.Authenticate(c.UserContext(), challenge, principal.UserID, principal.Expiry); err != nil {
			return err
		}

		return c.Next()
	}
}

func challengeFromHeaders(c *fiber.Ctx) (Challenge, error) {
	deviceID := c.Get(HeaderDeviceID)
	rawTimestamp := c.Get(HeaderTimestamp)
	signature := c.Get(HeaderSignature)
	if deviceID == "" || rawTimestamp == "" || signature == "" {
		return Challenge{}, apperr.Unauthorized("missing device challenge headers")
	}

	timestamp, err := strconv.ParseInt(rawTimestamp, 10, 64)
	if err != nil {
		return Challenge{}, apperr.WrapAs(apperr.KindUnauthorized, err, "device.challengeFromHeaders", "timestamp", rawTimestamp)
	}

	return Challenge{DeviceID: deviceID, Timestamp: timestamp, Signature: signature}, nil
}

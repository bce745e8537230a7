package device

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/database"
	"github.com/Anvoria/walletauth/internal/domain/user"
)

// Verifier authenticates device challenges against trusted device keys
type Verifier struct {
	users   user.Repository
	devices Repository
	exec    database.Executor
	strict  bool
}

// NewVerifier creates a verifier. With strict set, a challenge must carry a timestamp
// greater than the last accepted one for the device.
func NewVerifier(users user.Repository, devices Repository, exec database.Executor, strict bool) *Verifier {
	return &Verifier{users: users, devices: devices, exec: exec, strict: strict}
}

// Authenticate proves that the caller holds the key of a device trusted by userID.
// exp is the expiry of the session token the request was made with.
func (v *Verifier) Authenticate(ctx context.Context, c Challenge, userID int64, exp time.Time) error {
	err := v.exec.Execute(ctx, func(ctx context.Context) error {
		u, err := v.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.Invalid("email", "not_exists", "email not found").
				WithParam("user_id", strconv.FormatInt(userID, 10))
		}
		if u.Revoked(exp) {
			return apperr.Invalid("token", "revoked", "JWT has been revoked.")
		}

		d, err := v.devices.FindByID(ctx, c.DeviceID, userID)
		if err != nil {
			return err
		}
		if d == nil {
			return apperr.Invalid("device", "not_exists", "device not exists").
				WithParam("device_id", c.DeviceID)
		}

		if err := VerifyChallenge(c, d.PublicKey); err != nil {
			slog.Debug("Device challenge rejected", "device_id", c.DeviceID, "user_id", userID, "error", err)
			return apperr.WrapAs(apperr.KindUnauthorized, err, "device.VerifyChallenge")
		}

		if !v.strict {
			return v.devices.SetTimestamp(ctx, c.DeviceID, userID, c.Timestamp)
		}
		advanced, err := v.devices.AdvanceTimestamp(ctx, c.DeviceID, userID, c.Timestamp)
		if err != nil {
			return err
		}
		if !advanced {
			return apperr.WrapAs(apperr.KindUnauthorized, ErrStaleTimestamp, "device.AdvanceTimestamp",
				"timestamp", c.Timestamp, "last_timestamp", d.LastTimestamp)
		}
		return nil
	})
	return apperr.Wrap(err, "device.Authenticate", "device_id", c.DeviceID, "user_id", userID)
}

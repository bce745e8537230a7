package device

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/database"
	"github.com/Anvoria/walletauth/internal/domain/user"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Notifier delivers the confirmation link for a pending device
type Notifier interface {
	SendAddDevice(ctx context.Context, email string, tokenID uuid.UUID, deviceID string) error
}

// AddRequest asks to trust a new device for a user
type AddRequest struct {
	DeviceID  string
	DeviceOS  string
	PublicKey string
	UserID    int64
}

// TrustConfig holds the time windows of the registration flow
type TrustConfig struct {
	TokenExpiration     time.Duration
	EmailSendingTimeout time.Duration
}

// TrustService moves devices through request, confirmation and trust
type TrustService struct {
	users    user.Repository
	devices  Repository
	tokens   TokenRepository
	exec     database.Executor
	notifier Notifier
	clock    clock.Clock
	cfg      TrustConfig
}

// NewTrustService creates the device registration service
func NewTrustService(
	users user.Repository,
	devices Repository,
	tokens TokenRepository,
	exec database.Executor,
	notifier Notifier,
	clk clock.Clock,
	cfg TrustConfig,
) *TrustService {
	return &TrustService{
		users:    users,
		devices:  devices,
		tokens:   tokens,
		exec:     exec,
		notifier: notifier,
		clock:    clk,
		cfg:      cfg,
	}
}

// RequestAdd records a pending token for a new device and emails the confirmation link.
// The checks and the upsert run as one transaction; the email is sent after it commits.
func (s *TrustService) RequestAdd(ctx context.Context, req AddRequest) (*PendingToken, error) {
	var (
		email string
		token *PendingToken
	)

	err := s.exec.ExecuteTransaction(ctx, func(ctx context.Context) error {
		u, err := s.users.FindByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.Unauthorized("user does not exist")
		}

		existing, err := s.devices.FindByID(ctx, req.DeviceID, req.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Invalid("device", "exists", "device already exists")
		}

		now := s.clock.Now()
		pending, err := s.tokens.FindByPublicKey(ctx, req.PublicKey)
		if err != nil {
			return err
		}
		if pending != nil && now.Sub(pending.UpdatedAt) < s.cfg.EmailSendingTimeout {
			return apperr.Invalid("device", "email_timeout",
				"can not send email more often then "+s.cfg.EmailSendingTimeout.String())
		}

		token = &PendingToken{
			ID:        uuid.New(),
			DeviceID:  req.DeviceID,
			DeviceOS:  req.DeviceOS,
			UserID:    req.UserID,
			PublicKey: req.PublicKey,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.tokens.Upsert(ctx, token); err != nil {
			return err
		}
		email = u.Email
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "device.RequestAdd", "device_id", req.DeviceID, "user_id", req.UserID)
	}

	if err := s.notifier.SendAddDevice(ctx, email, token.ID, req.DeviceID); err != nil {
		return nil, apperr.WrapAs(apperr.KindInternal, err, "device.SendAddDevice", "token_id", token.ID)
	}

	slog.Info("Device confirmation requested", "device_id", req.DeviceID, "user_id", req.UserID, "token_id", token.ID)
	return token, nil
}

// Confirm turns a pending token into a trusted device. Confirming an already trusted
// device succeeds without changes.
func (s *TrustService) Confirm(ctx context.Context, tokenID uuid.UUID) error {
	err := s.exec.ExecuteTransaction(ctx, func(ctx context.Context) error {
		token, err := s.tokens.FindByID(ctx, tokenID)
		if err != nil {
			return err
		}
		if token == nil {
			return apperr.NotFound("device token not found")
		}

		existing, err := s.devices.FindByID(ctx, token.DeviceID, token.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		if s.clock.Now().Sub(token.UpdatedAt) > s.cfg.TokenExpiration {
			return apperr.Invalid("device", "token_expired", "device token expired")
		}

		err = s.devices.Create(ctx, token.Device())
		if errors.Is(err, ErrDeviceExists) {
			// confirmed concurrently by another request
			return nil
		}
		return err
	})
	if err != nil {
		return apperr.Wrap(err, "device.Confirm", "token_id", tokenID)
	}

	slog.Info("Device confirmed", "token_id", tokenID)
	return nil
}

// PurgeExpired deletes pending tokens last updated more than olderThan ago
func (s *TrustService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	var deleted int64
	err := s.exec.Execute(ctx, func(ctx context.Context) error {
		n, err := s.tokens.DeleteUpdatedBefore(ctx, s.clock.Now().Add(-olderThan))
		deleted = n
		return err
	})
	if err != nil {
		return 0, apperr.Wrap(err, "device.PurgeExpired", "older_than", olderThan)
	}
	return deleted, nil
}

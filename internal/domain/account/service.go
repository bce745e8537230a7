// Package account registers wallet users and serves their profile.
package account

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/database"
	"github.com/Anvoria/walletauth/internal/domain/device"
	"github.com/Anvoria/walletauth/internal/domain/user"
	"github.com/Anvoria/walletauth/internal/identity"
)

const minPasswordLength = 8

// SignUpRequest creates an account together with its first trusted device
type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DeviceID  string `json:"device_id"`
	DeviceOS  string `json:"device_os"`
	PublicKey string `json:"public_key"`
}

// Profile is a user with the devices it trusts
type Profile struct {
	User    *user.User      `json:"user"`
	Devices []device.Device `json:"devices"`
}

// Service handles signup and profile reads
type Service struct {
	identity identity.Client
	users    user.Repository
	devices  device.Repository
	exec     database.Executor
}

// NewService creates a new account service
func NewService(identity identity.Client, users user.Repository, devices device.Repository, exec database.Executor) *Service {
	return &Service{identity: identity, users: users, devices: devices, exec: exec}
}

// SignUp creates the account upstream, then stores the local user and its first device in one transaction
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*user.User, error) {
	if err := req.normalize().validate(); err != nil {
		return nil, err
	}

	created, err := s.identity.CreateUser(ctx, identity.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return nil, apperr.Wrap(err, "account.SignUp", "email", req.Email)
	}

	u := &user.User{
		ID:        created.ID,
		Email:     created.Email,
		FirstName: created.FirstName,
		LastName:  created.LastName,
	}

	err = s.exec.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			if errors.Is(err, user.ErrUserExists) {
				return apperr.Invalid("email", "exists", "user already exists")
			}
			return err
		}

		err := s.devices.Create(ctx, &device.Device{
			DeviceID:  req.DeviceID,
			UserID:    u.ID,
			DeviceOS:  req.DeviceOS,
			PublicKey: req.PublicKey,
		})
		if errors.Is(err, device.ErrDeviceExists) {
			return apperr.Invalid("device", "exists", "device already exists")
		}
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(err, "account.SignUp", "user_id", u.ID, "device_id", req.DeviceID)
	}

	slog.Info("User signed up", "user_id", u.ID, "device_id", req.DeviceID)
	return u, nil
}

// Me returns the profile of a user
func (s *Service) Me(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile
	err := s.exec.Execute(ctx, func(ctx context.Context) error {
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.NotFound("user not found")
		}

		devices, err := s.devices.ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		profile = Profile{User: u, Devices: devices}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "account.Me", "user_id", userID)
	}
	return &profile, nil
}

func (r *SignUpRequest) normalize() *SignUpRequest {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.DeviceID = strings.TrimSpace(r.DeviceID)
	r.DeviceOS = strings.TrimSpace(r.DeviceOS)
	r.PublicKey = strings.ToLower(strings.TrimSpace(r.PublicKey))
	return r
}

func (r *SignUpRequest) validate() error {
	fields := apperr.Fields{}

	if r.Email == "" {
		fields.Add("email", "required", "email is required")
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		fields.Add("email", "email", "invalid email format")
	}
	if len(r.Password) < minPasswordLength {
		fields.Add("password", "length", "password must be at least 8 characters")
	}
	if r.DeviceID == "" {
		fields.Add("device_id", "required", "device id is required")
	}
	if r.DeviceOS == "" {
		fields.Add("device_os", "required", "device os is required")
	}
	if r.PublicKey == "" {
		fields.Add("public_key", "required", "public key is required")
	} else if _, err := device.ParsePublicKey(r.PublicKey); err != nil {
		fields.Add("public_key", "invalid", "public key is not a valid secp256k1 key")
	}

	if len(fields) > 0 {
		return apperr.InvalidFields(fields)
	}
	return nil
}

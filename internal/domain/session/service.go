// Package session issues, refreshes and revokes wallet sessions.
// Tokens are minted by the identity service; revocation is local.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/Anvoria/walletauth/internal/domain/user"
	"github.com/Anvoria/walletauth/internal/identity"
)

// revokeMargin pushes the watermark just past the revoked token's expiry
const revokeMargin = time.Second

// Service is the session API
type Service struct {
	identity identity.Client
	checker  *auth.RevocationChecker
}

// NewService creates a new session service
func NewService(identity identity.Client, checker *auth.RevocationChecker) *Service {
	return &Service{identity: identity, checker: checker}
}

// Issue exchanges credentials for a session token
func (s *Service) Issue(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	fields := apperr.Fields{}
	if email == "" {
		fields.Add("email", "required", "email is required")
	}
	if password == "" {
		fields.Add("password", "required", "password is required")
	}
	if len(fields) > 0 {
		return "", apperr.InvalidFields(fields)
	}

	token, err := s.identity.IssueToken(ctx, email, password)
	if err != nil {
		return "", apperr.Wrap(err, "session.Issue", "email", email)
	}
	return token, nil
}

// Refresh trades the caller's token for a fresh one
func (s *Service) Refresh(ctx context.Context, p *auth.Principal) (string, error) {
	token, err := s.identity.RefreshToken(ctx, p.Token)
	if err != nil {
		return "", apperr.Wrap(err, "session.Refresh", "user_id", p.UserID)
	}
	return token, nil
}

// Revoke invalidates the caller's token and every token that expires no later than it
func (s *Service) Revoke(ctx context.Context, p *auth.Principal) error {
	err := s.checker.Revoke(ctx, p.UserID, p.Expiry.Add(revokeMargin))
	if errors.Is(err, user.ErrUserNotFound) {
		return apperr.WrapAs(apperr.KindNotFound, err, "session.Revoke", "user_id", p.UserID)
	}
	if err != nil {
		return apperr.Wrap(err, "session.Revoke", "user_id", p.UserID)
	}

	slog.Info("Sessions revoked", "user_id", p.UserID, "revoke_before", p.Expiry.Add(revokeMargin))
	return nil
}

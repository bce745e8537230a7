package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/cache"
	"github.com/Anvoria/walletauth/internal/database"
	"github.com/Anvoria/walletauth/internal/domain/user"
)

// RevocationChecker compares session expiries with the per-user revoke watermark.
// Watermarks are read through the cache and fall back to the user store.
type RevocationChecker struct {
	users user.Repository
	marks cache.Watermarks
	exec  database.Executor
}

// NewRevocationChecker creates a checker
func NewRevocationChecker(users user.Repository, marks cache.Watermarks, exec database.Executor) *RevocationChecker {
	return &RevocationChecker{users: users, marks: marks, exec: exec}
}

// Check rejects a principal whose token expires before the user's watermark
func (r *RevocationChecker) Check(ctx context.Context, p *Principal) error {
	mark, err := r.watermark(ctx, p.UserID)
	if err != nil {
		return apperr.Wrap(err, "auth.CheckRevocation", "user_id", p.UserID)
	}
	if p.Expiry.Before(mark) {
		return apperr.Invalid("token", "revoked", "JWT has been revoked.")
	}
	return nil
}

// Revoke moves the watermark of userID so every token expiring before revokeBefore is rejected
func (r *RevocationChecker) Revoke(ctx context.Context, userID int64, revokeBefore time.Time) error {
	err := r.exec.Execute(ctx, func(ctx context.Context) error {
		return r.users.SetRevokeBefore(ctx, userID, revokeBefore)
	})
	if err != nil {
		return apperr.Wrap(err, "auth.Revoke", "user_id", userID)
	}

	if err := r.marks.Set(ctx, userID, revokeBefore); err != nil {
		slog.Warn("Failed to store watermark in cache", "user_id", userID, "error", err)
		if err := r.marks.Invalidate(ctx, userID); err != nil {
			slog.Warn("Failed to invalidate cached watermark", "user_id", userID, "error", err)
		}
	}
	return nil
}

func (r *RevocationChecker) watermark(ctx context.Context, userID int64) (time.Time, error) {
	mark, ok, err := r.marks.Get(ctx, userID)
	if err != nil {
		slog.Warn("Watermark cache unavailable, reading store", "user_id", userID, "error", err)
	}
	if ok {
		return mark, nil
	}

	var u *user.User
	err = r.exec.Execute(ctx, func(ctx context.Context) error {
		var err error
		u, err = r.users.FindByID(ctx, userID)
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	// unknown users have no watermark yet
	if u != nil {
		mark = u.RevokeBefore
	}

	if err := r.marks.Set(ctx, userID, mark); err != nil {
		slog.Warn("Failed to store watermark in cache", "user_id", userID, "error", err)
	}
	return mark, nil
}

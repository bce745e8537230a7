package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/cache"
	"github.com/Anvoria/walletauth/internal/database"
	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/Anvoria/walletauth/internal/domain/user"
	"github.com/Anvoria/walletauth/internal/memstore"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// revokeOnFill runs a revoke between the store read of a cache miss and the cache fill
type revokeOnFill struct {
	*cache.MemoryWatermarks
	once   sync.Once
	revoke func()
}

func (w *revokeOnFill) Set(ctx context.Context, userID int64, revokeBefore time.Time) error {
	w.once.Do(w.revoke)
	return w.MemoryWatermarks.Set(ctx, userID, revokeBefore)
}

func TestRevocationChecker_RevokeDuringCacheFill(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0).UTC()
	clk := clock.NewMock()
	clk.Set(now)

	store := memstore.New(database.NewPool(2), clk)
	require.NoError(t, store.Users().Create(ctx, &user.User{ID: 7, Email: "user@example.com"}))

	expiry := now.Add(time.Hour)
	revokeBefore := expiry.Add(time.Second)

	marks := &revokeOnFill{MemoryWatermarks: cache.NewMemoryWatermarks(time.Minute)}
	checker := auth.NewRevocationChecker(store.Users(), marks, store)
	marks.revoke = func() {
		require.NoError(t, checker.Revoke(ctx, 7, revokeBefore))
	}

	// the first check reads the old mark and races the revoke
	_ = checker.Check(ctx, &auth.Principal{UserID: 7, Expiry: expiry})

	cached, ok, err := marks.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, revokeBefore.Equal(cached), "stale fill overwrote the revoke")

	err = checker.Check(ctx, &auth.Principal{UserID: 7, Expiry: expiry})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	assert.Equal(t, "revoked", apperr.FieldsOf(err)["token"][0].Code)
}

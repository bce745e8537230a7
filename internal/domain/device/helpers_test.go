package device_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Anvoria/walletauth/internal/database"
	"github.com/Anvoria/walletauth/internal/domain/device"
	"github.com/Anvoria/walletauth/internal/domain/user"
	"github.com/Anvoria/walletauth/internal/memstore"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0).UTC()

type sentEmail struct {
	Email    string
	TokenID  uuid.UUID
	DeviceID string
}

// recordingNotifier keeps every confirmation email instead of sending it
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (n *recordingNotifier) SendAddDevice(_ context.Context, email string, tokenID uuid.UUID, deviceID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentEmail{email, tokenID, deviceID})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fixture struct {
	store    *memstore.Store
	clock    *clock.Mock
	notifier *recordingNotifier
	trust    *device.TrustService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(epoch)
	store := memstore.New(database.NewPool(4), clk)
	notifier := &recordingNotifier{}

	trust := device.NewTrustService(store.Users(), store.Devices(), store.Tokens(), store, notifier, clk, device.TrustConfig{
		TokenExpiration:     time.Hour,
		EmailSendingTimeout: 30 * time.Second,
	})
	return &fixture{store: store, clock: clk, notifier: notifier, trust: trust}
}

func (f *fixture) addUser(t *testing.T, id int64) {
	t.Helper()
	require.NoError(t, f.store.Users().Create(context.Background(), &user.User{ID: id, Email: "user@example.com"}))
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/cache"
	"github.com/Anvoria/walletauth/internal/database"
	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/Anvoria/walletauth/internal/domain/user"
	"github.com/Anvoria/walletauth/internal/identity"
	"github.com/Anvoria/walletauth/internal/memstore"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockIdentityClient is a mock implementation of identity.Client
type MockIdentityClient struct {
	mock.Mock
}

func (m *MockIdentityClient) IssueToken(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityClient) RefreshToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityClient) CreateUser(ctx context.Context, u identity.NewUser) (*identity.User, error) {
	args := m.Called(ctx, u)
	return nil, args.Error(1)
}

type fixture struct {
	service *Service
	client  *MockIdentityClient
	store   *memstore.Store
	checker *auth.RevocationChecker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New(database.NewPool(2), clock.NewMock())
	checker := auth.NewRevocationChecker(store.Users(), cache.NewMemoryWatermarks(time.Minute), store)
	client := new(MockIdentityClient)
	return &fixture{service: NewService(client, checker), client: client, store: store, checker: checker}
}

func TestService_Issue(t *testing.T) {
	f := newFixture(t)
	f.client.On("IssueToken", mock.Anything, "user@example.com", "pw").Return("jwt", nil)

	token, err := f.service.Issue(context.Background(), " User@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)
}

func TestService_Issue_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Issue(context.Background(), "", "")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	assert.Len(t, apperr.FieldsOf(err), 2)
	f.client.AssertNotCalled(t, "IssueToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Issue_Rejected(t *testing.T) {
	f := newFixture(t)
	f.client.On("IssueToken", mock.Anything, mock.Anything, mock.Anything).
		Return("", apperr.Unauthorized("identity rejected credentials"))

	_, err := f.service.Issue(context.Background(), "user@example.com", "bad")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestService_Refresh(t *testing.T) {
	f := newFixture(t)
	f.client.On("RefreshToken", mock.Anything, "old").Return("new", nil)

	token, err := f.service.Refresh(context.Background(), &auth.Principal{UserID: 7, Token: "old"})
	require.NoError(t, err)
	assert.Equal(t, "new", token)
}

func TestService_Revoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Users().Create(ctx, &user.User{ID: 7, Email: "user@example.com"}))

	exp := time.Unix(1_700_003_600, 0)
	revoked := &auth.Principal{UserID: 7, Expiry: exp}
	require.NoError(t, f.service.Revoke(ctx, revoked))

	err := f.checker.Check(ctx, revoked)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err), "the revoked token itself is rejected")
	assert.Equal(t, "revoked", apperr.FieldsOf(err)["token"][0].Code)

	later := &auth.Principal{UserID: 7, Expiry: exp.Add(2 * time.Second)}
	assert.NoError(t, f.checker.Check(ctx, later), "tokens expiring after the watermark stay valid")
}

func TestService_Revoke_UnknownUser(t *testing.T) {
	f := newFixture(t)

	err := f.service.Revoke(context.Background(), &auth.Principal{UserID: 99, Expiry: time.Now()})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

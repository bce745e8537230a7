package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock implementation of user.Repository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) SetRevokeBefore(ctx context.Context, id int64, t time.Time) error {
	args := m.Called(ctx, id, t)
	return args.Error(0)
}

// MockWatermarks is a mock implementation of cache.Watermarks
type MockWatermarks struct {
	mock.Mock
}

func (m *MockWatermarks) Get(ctx context.Context, userID int64) (time.Time, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockWatermarks) Set(ctx context.Context, userID int64, revokeBefore time.Time) error {
	args := m.Called(ctx, userID, revokeBefore)
	return args.Error(0)
}

func (m *MockWatermarks) Invalidate(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// inlineExecutor runs work on the calling goroutine
type inlineExecutor struct{}

func (inlineExecutor) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (inlineExecutor) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestRevocationChecker_Check(t *testing.T) {
	mark := testNow

	t.Run("cache hit, token expires after watermark", func(t *testing.T) {
		users, marks := new(MockUserRepository), new(MockWatermarks)
		marks.On("Get", mock.Anything, int64(7)).Return(mark, true, nil)

		checker := NewRevocationChecker(users, marks, inlineExecutor{})
		err := checker.Check(context.Background(), &Principal{UserID: 7, Expiry: mark.Add(time.Second)})
		assert.NoError(t, err)
		users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("token expiring before watermark is revoked", func(t *testing.T) {
		users, marks := new(MockUserRepository), new(MockWatermarks)
		marks.On("Get", mock.Anything, int64(7)).Return(mark, true, nil)

		checker := NewRevocationChecker(users, marks, inlineExecutor{})
		err := checker.Check(context.Background(), &Principal{UserID: 7, Expiry: mark.Add(-time.Second)})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
		assert.Equal(t, "revoked", apperr.FieldsOf(err)["token"][0].Code)
	})

	t.Run("cache miss loads from store and fills cache", func(t *testing.T) {
		users, marks := new(MockUserRepository), new(MockWatermarks)
		marks.On("Get", mock.Anything, int64(7)).Return(time.Time{}, false, nil)
		users.On("FindByID", mock.Anything, int64(7)).Return(&user.User{ID: 7, RevokeBefore: mark}, nil)
		marks.On("Set", mock.Anything, int64(7), mark).Return(nil)

		checker := NewRevocationChecker(users, marks, inlineExecutor{})
		err := checker.Check(context.Background(), &Principal{UserID: 7, Expiry: mark.Add(-time.Hour)})
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
		marks.AssertExpectations(t)
	})

	t.Run("cache failure falls back to store", func(t *testing.T) {
		users, marks := new(MockUserRepository), new(MockWatermarks)
		marks.On("Get", mock.Anything, int64(7)).Return(time.Time{}, false, errors.New("redis down"))
		users.On("FindByID", mock.Anything, int64(7)).Return(&user.User{ID: 7}, nil)
		marks.On("Set", mock.Anything, int64(7), time.Time{}).Return(errors.New("redis down"))

		checker := NewRevocationChecker(users, marks, inlineExecutor{})
		err := checker.Check(context.Background(), &Principal{UserID: 7, Expiry: mark})
		assert.NoError(t, err)
	})

	t.Run("unknown user has no watermark", func(t *testing.T) {
		users, marks := new(MockUserRepository), new(MockWatermarks)
		marks.On("Get", mock.Anything, int64(9)).Return(time.Time{}, false, nil)
		users.On("FindByID", mock.Anything, int64(9)).Return(nil, nil)
		marks.On("Set", mock.Anything, int64(9), time.Time{}).Return(nil)

		checker := NewRevocationChecker(users, marks, inlineExecutor{})
		assert.NoError(t, checker.Check(context.Background(), &Principal{UserID: 9, Expiry: mark}))
	})

	t.Run("store failure is internal", func(t *testing.T) {
		users, marks := new(MockUserRepository), new(MockWatermarks)
		marks.On("Get", mock.Anything, int64(7)).Return(time.Time{}, false, nil)
		users.On("FindByID", mock.Anything, int64(7)).Return(nil, errors.New("connection refused"))

		checker := NewRevocationChecker(users, marks, inlineExecutor{})
		err := checker.Check(context.Background(), &Principal{UserID: 7, Expiry: mark})
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

func TestRevocationChecker_Revoke(t *testing.T) {
	t.Run("writes store then cache", func(t *testing.T) {
		users, marks := new(MockUserRepository), new(MockWatermarks)
		users.On("SetRevokeBefore", mock.Anything, int64(7), testNow).Return(nil)
		marks.On("Set", mock.Anything, int64(7), testNow).Return(nil)

		checker := NewRevocationChecker(users, marks, inlineExecutor{})
		require.NoError(t, checker.Revoke(context.Background(), 7, testNow))
		users.AssertExpectations(t)
		marks.AssertExpectations(t)
	})

	t.Run("cache write failure invalidates", func(t *testing.T) {
		users, marks := new(MockUserRepository), new(MockWatermarks)
		users.On("SetRevokeBefore", mock.Anything, int64(7), testNow).Return(nil)
		marks.On("Set", mock.Anything, int64(7), testNow).Return(errors.New("redis down"))
		marks.On("Invalidate", mock.Anything, int64(7)).Return(nil)

		checker := NewRevocationChecker(users, marks, inlineExecutor{})
		require.NoError(t, checker.Revoke(context.Background(), 7, testNow))
		marks.AssertCalled(t, "Invalidate", mock.Anything, int64(7))
	})

	t.Run("store failure skips cache", func(t *testing.T) {
		users, marks := new(MockUserRepository), new(MockWatermarks)
		users.On("SetRevokeBefore", mock.Anything, int64(7), testNow).Return(user.ErrUserNotFound)

		checker := NewRevocationChecker(users, marks, inlineExecutor{})
		err := checker.Revoke(context.Background(), 7, testNow)
		assert.ErrorIs(t, err, user.ErrUserNotFound)
		marks.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})
}

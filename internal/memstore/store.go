// Package memstore keeps users, devices and pending tokens in process.
// It backs the "memory" database driver and the service tests.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/Anvoria/walletauth/internal/database"
	"github.com/Anvoria/walletauth/internal/domain/device"
	"github.com/Anvoria/walletauth/internal/domain/user"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

type deviceKey struct {
	deviceID string
	userID   int64
}

// Store is an in-process implementation of the repositories and the executor.
// Work runs one unit at a time; a failed transaction restores the state it started from.
type Store struct {
	work sync.Mutex
	mu   sync.RWMutex

	pool  *database.Pool
	clock clock.Clock

	users   map[int64]user.User
	devices map[deviceKey]device.Device
	tokens  map[uuid.UUID]device.PendingToken
	byKey   map[string]uuid.UUID
}

// New creates an empty store
func New(pool *database.Pool, clk clock.Clock) *Store {
	return &Store{
		pool:    pool,
		clock:   clk,
		users:   map[int64]user.User{},
		devices: map[deviceKey]device.Device{},
		tokens:  map[uuid.UUID]device.PendingToken{},
		byKey:   map[string]uuid.UUID{},
	}
}

// Users returns the user repository view of the store
func (s *Store) Users() user.Repository { return &userRepo{s} }

// Devices returns the device repository view of the store
func (s *Store) Devices() device.Repository { return &deviceRepo{s} }

// Tokens returns the pending token repository view of the store
func (s *Store) Tokens() device.TokenRepository { return &tokenRepo{s} }

// Execute runs fn on the pool
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.pool.Run(ctx, func(ctx context.Context) error {
		s.work.Lock()
		defer s.work.Unlock()
		return fn(ctx)
	})
}

// ExecuteTransaction runs fn on the pool and undoes its writes if it fails
func (s *Store) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.pool.Run(ctx, func(ctx context.Context) error {
		s.work.Lock()
		defer s.work.Unlock()

		snap := s.snapshot()
		if err := fn(ctx); err != nil {
			s.restore(snap)
			return err
		}
		return nil
	})
}

type snapshot struct {
	users   map[int64]user.User
	devices map[deviceKey]device.Device
	tokens  map[uuid.UUID]device.PendingToken
	byKey   map[string]uuid.UUID
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		users:   maps.Clone(s.users),
		devices: maps.Clone(s.devices),
		tokens:  maps.Clone(s.tokens),
		byKey:   maps.Clone(s.byKey),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.devices = snap.devices
	s.tokens = snap.tokens
	s.byKey = snap.byKey
}

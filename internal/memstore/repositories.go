package memstore

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/Anvoria/walletauth/internal/domain/device"
	"github.com/Anvoria/walletauth/internal/domain/user"
	"github.com/google/uuid"
)

type userRepo struct{ s *Store }

func (r *userRepo) FindByID(_ context.Context, id int64) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; ok {
		return user.ErrUserExists
	}
	now := r.s.clock.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = *u
	return nil
}

func (r *userRepo) SetRevokeBefore(_ context.Context, id int64, t time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.RevokeBefore = t
	u.UpdatedAt = r.s.clock.Now()
	r.s.users[id] = u
	return nil
}

type deviceRepo struct{ s *Store }

func (r *deviceRepo) FindByID(_ context.Context, deviceID string, userID int64) (*device.Device, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.devices[deviceKey{deviceID, userID}]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *deviceRepo) ListByUser(_ context.Context, userID int64) ([]device.Device, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []device.Device
	for k, d := range r.s.devices {
		if k.userID == userID {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b device.Device) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.DeviceID, b.DeviceID)
	})
	return out, nil
}

func (r *deviceRepo) Create(_ context.Context, d *device.Device) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := deviceKey{d.DeviceID, d.UserID}
	if _, ok := r.s.devices[key]; ok {
		return device.ErrDeviceExists
	}
	now := r.s.clock.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	r.s.devices[key] = *d
	return nil
}

func (r *deviceRepo) AdvanceTimestamp(_ context.Context, deviceID string, userID int64, ts int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := deviceKey{deviceID, userID}
	d, ok := r.s.devices[key]
	if !ok || d.LastTimestamp >= ts {
		return false, nil
	}
	d.LastTimestamp = ts
	d.UpdatedAt = r.s.clock.Now()
	r.s.devices[key] = d
	return true, nil
}

func (r *deviceRepo) SetTimestamp(_ context.Context, deviceID string, userID int64, ts int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := deviceKey{deviceID, userID}
	d, ok := r.s.devices[key]
	if !ok {
		return nil
	}
	d.LastTimestamp = ts
	d.UpdatedAt = r.s.clock.Now()
	r.s.devices[key] = d
	return nil
}

type tokenRepo struct{ s *Store }

func (r *tokenRepo) FindByID(_ context.Context, id uuid.UUID) (*device.PendingToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tokens[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *tokenRepo) FindByPublicKey(_ context.Context, publicKey string) (*device.PendingToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byKey[publicKey]
	if !ok {
		return nil, nil
	}
	t := r.s.tokens[id]
	return &t, nil
}

func (r *tokenRepo) Upsert(_ context.Context, t *device.PendingToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if old, ok := r.s.byKey[t.PublicKey]; ok {
		delete(r.s.tokens, old)
	}
	r.s.tokens[t.ID] = *t
	r.s.byKey[t.PublicKey] = t.ID
	return nil
}

func (r *tokenRepo) DeleteUpdatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.tokens {
		if t.UpdatedAt.Before(cutoff) {
			delete(r.s.tokens, id)
			delete(r.s.byKey, t.PublicKey)
			n++
		}
	}
	return n, nil
}

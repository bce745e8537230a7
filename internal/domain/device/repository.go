package device

import (
	"context"
	"errors"
	"time"

	"github.com/Anvoria/walletauth/internal/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores trusted devices.
// Lookups return nil, nil when the device does not exist.
type Repository interface {
	FindByID(ctx context.Context, deviceID string, userID int64) (*Device, error)
	ListByUser(ctx context.Context, userID int64) ([]Device, error)
	Create(ctx context.Context, d *Device) error
	// AdvanceTimestamp stores ts only if it is greater than the stored one and reports whether it did
	AdvanceTimestamp(ctx context.Context, deviceID string, userID int64, ts int64) (bool, error)
	SetTimestamp(ctx context.Context, deviceID string, userID int64, ts int64) error
}

// TokenRepository stores pending device tokens.
// Lookups return nil, nil when the token does not exist.
type TokenRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PendingToken, error)
	FindByPublicKey(ctx context.Context, publicKey string) (*PendingToken, error)
	Upsert(ctx context.Context, t *PendingToken) error
	DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm backed device repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) FindByID(ctx context.Context, deviceID string, userID int64) (*Device, error) {
	var d Device
	err := database.Conn(ctx, r.db).
		Where("device_id = ? AND user_id = ?", deviceID, userID).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]Device, error) {
	var devices []Device
	err := database.Conn(ctx, r.db).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&devices).Error
	return devices, err
}

// Create inserts d, returning ErrDeviceExists when the (device_id, user_id) pair is taken.
// The conflict is resolved in the statement so an enclosing transaction stays usable.
func (r *repository) Create(ctx context.Context, d *Device) error {
	res := database.Conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(d)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDeviceExists
	}
	return nil
}

func (r *repository) AdvanceTimestamp(ctx context.Context, deviceID string, userID int64, ts int64) (bool, error) {
	res := database.Conn(ctx, r.db).Model(&Device{}).
		Where("device_id = ? AND user_id = ? AND last_timestamp < ?", deviceID, userID, ts).
		Update("last_timestamp", ts)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetTimestamp(ctx context.Context, deviceID string, userID int64, ts int64) error {
	return database.Conn(ctx, r.db).Model(&Device{}).
		Where("device_id = ? AND user_id = ?", deviceID, userID).
		Update("last_timestamp", ts).Error
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a gorm backed pending token repository
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db}
}

func (r *tokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*PendingToken, error) {
	var t PendingToken
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepository) FindByPublicKey(ctx context.Context, publicKey string) (*PendingToken, error) {
	var t PendingToken
	err := database.Conn(ctx, r.db).Where("public_key = ?", publicKey).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert inserts t or replaces every column of the token holding the same public key
func (r *tokenRepository) Upsert(ctx context.Context, t *PendingToken) error {
	return database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "public_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"id", "device_id", "device_os", "user_id", "created_at", "updated_at"}),
	}).Create(t).Error
}

func (r *tokenRepository) DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := database.Conn(ctx, r.db).Where("updated_at < ?", cutoff).Delete(&PendingToken{})
	return res.RowsAffected, res.Error
}

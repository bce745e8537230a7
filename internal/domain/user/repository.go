package user

import (
	"context"
	"errors"
	"time"

	"github.com/Anvoria/walletauth/internal/database"
	"gorm.io/gorm"
)

// Repository interface for user operations.
// Lookups return nil, nil when the user does not exist.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user *User) error
	SetRevokeBefore(ctx context.Context, id int64, t time.Time) error
}

// repository struct for user operations
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// FindByID gets a user by ID
func (r *repository) FindByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create creates a new user
func (r *repository) Create(ctx context.Context, u *User) error {
	err := database.Conn(ctx, r.db).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	return err
}

// SetRevokeBefore moves the revoke watermark of a user
func (r *repository) SetRevokeBefore(ctx context.Context, id int64, t time.Time) error {
	res := database.Conn(ctx, r.db).Model(&User{}).
		Where("id = ?", id).
		Update("revoke_before", t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

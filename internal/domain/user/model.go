package user

import "time"

// User is the local record of an identity-service account.
// RevokeBefore is the revoke watermark: session tokens expiring before it are rejected.
type User struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Email        string    `gorm:"column:email;not null" json:"email"`
	FirstName    string    `gorm:"column:first_name" json:"first_name,omitempty"`
	LastName     string    `gorm:"column:last_name" json:"last_name,omitempty"`
	RevokeBefore time.Time `gorm:"column:revoke_before;not null" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Revoked reports whether a token expiring at exp falls under the watermark
func (u *User) Revoked(exp time.Time) bool {
	return exp.Before(u.RevokeBefore)
}

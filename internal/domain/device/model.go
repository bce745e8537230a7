package device

import (
	"time"

	"github.com/google/uuid"
)

// Device is a trusted device of a user. Its public key verifies device challenges.
type Device struct {
	DeviceID      string    `gorm:"column:device_id;primaryKey" json:"device_id"`
	UserID        int64     `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	DeviceOS      string    `gorm:"column:device_os;not null" json:"device_os"`
	PublicKey     string    `gorm:"column:public_key;not null" json:"public_key"`
	LastTimestamp int64     `gorm:"column:last_timestamp;not null;default:0" json:"last_timestamp"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Device) TableName() string {
	return "devices"
}

// PendingToken is an unconfirmed request to trust a new device.
// There is at most one per public key; a new request replaces the previous one.
type PendingToken struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	DeviceID  string    `gorm:"column:device_id;not null"`
	DeviceOS  string    `gorm:"column:device_os;not null"`
	UserID    int64     `gorm:"column:user_id;not null"`
	PublicKey string    `gorm:"column:public_key;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (PendingToken) TableName() string {
	return "device_tokens"
}

// Device builds the trusted device a confirmed token turns into
func (t *PendingToken) Device() *Device {
	return &Device{
		DeviceID:  t.DeviceID,
		UserID:    t.UserID,
		DeviceOS:  t.DeviceOS,
		PublicKey: t.PublicKey,
	}
}

// Challenge is the proof of key possession sent with a device-authenticated request
type Challenge struct {
	DeviceID  string
	Timestamp int64
	Signature string
}

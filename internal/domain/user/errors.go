package user

import "errors"

var (
	// ErrUserNotFound is returned when an update targets a user that does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when creating a user whose id is already taken
	ErrUserExists = errors.New("user already exists")
)

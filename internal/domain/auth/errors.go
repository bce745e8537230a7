package auth

import "errors"

var (
	// ErrMissingExpiry is returned for tokens without an exp claim
	ErrMissingExpiry = errors.New("token missing expiration claim")
	// ErrMissingUserID is returned for tokens without a usable user_id claim
	ErrMissingUserID = errors.New("token missing user_id claim")
	// ErrInvalidAuthorizationHeader is returned when the header is not "Bearer <token>"
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")
)

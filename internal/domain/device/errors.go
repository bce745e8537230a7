package device

import "errors"

var (
	// ErrDeviceExists is returned when creating a device that is already trusted
	ErrDeviceExists = errors.New("device already exists")
	// ErrMalformedPublicKey is returned when a public key is not a hex secp256k1 point
	ErrMalformedPublicKey = errors.New("malformed public key")
	// ErrMalformedSignature is returned when a signature is not 64 hex-encoded bytes of r||s
	ErrMalformedSignature = errors.New("malformed signature")
	// ErrSignatureMismatch is returned when a signature does not verify
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrStaleTimestamp is returned when a challenge timestamp does not advance
	ErrStaleTimestamp = errors.New("challenge timestamp not increasing")
)

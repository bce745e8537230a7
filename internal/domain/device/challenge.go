package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// compactSignatureLen is the size of a serialized r||s pair
const compactSignatureLen = 64

// Digest returns the message a device signs: SHA-256 of the decimal timestamp followed by the device id
func Digest(timestamp int64, deviceID string) [32]byte {
	return sha256.Sum256([]byte(strconv.FormatInt(timestamp, 10) + deviceID))
}

// ParsePublicKey decodes a hex encoded compressed or uncompressed secp256k1 public key
func ParsePublicKey(hexKey string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, ErrMalformedPublicKey
	}
	key, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, ErrMalformedPublicKey
	}
	return key, nil
}

// ParseSignature decodes a hex encoded 64 byte r||s signature with a low S value
func ParseSignature(hexSig string) (*ecdsa.Signature, error) {
	raw, err := hex.DecodeString(hexSig)
	if err != nil || len(raw) != compactSignatureLen {
		return nil, ErrMalformedSignature
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(raw[:32]); overflow || r.IsZero() {
		return nil, ErrMalformedSignature
	}
	// only the low-S form is accepted
	if overflow := s.SetByteSlice(raw[32:]); overflow || s.IsZero() || s.IsOverHalfOrder() {
		return nil, ErrMalformedSignature
	}
	return ecdsa.NewSignature(&r, &s), nil
}

// VerifyChallenge checks that c was signed by the holder of the hex encoded public key
func VerifyChallenge(c Challenge, publicKey string) error {
	key, err := ParsePublicKey(publicKey)
	if err != nil {
		return err
	}
	sig, err := ParseSignature(c.Signature)
	if err != nil {
		return err
	}

	digest := Digest(c.Timestamp, c.DeviceID)
	if !sig.Verify(digest[:], key) {
		return ErrSignatureMismatch
	}
	return nil
}

// SignChallenge produces the hex r||s signature a device sends for the given timestamp
func SignChallenge(key *secp256k1.PrivateKey, timestamp int64, deviceID string) string {
	digest := Digest(timestamp, deviceID)
	// SignCompact prefixes r||s with a recovery byte
	compact := ecdsa.SignCompact(key, digest[:], true)
	return hex.EncodeToString(compact[1:])
}

// EncodePublicKey returns the hex compressed form of the key's public half
func EncodePublicKey(key *secp256k1.PrivateKey) string {
	return hex.EncodeToString(key.PubKey().SerializeCompressed())
}

package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	want := sha256.Sum256([]byte("100D1"))
	assert.Equal(t, want, Digest(100, "D1"))
	assert.Equal(t, Digest(100, "D1"), Digest(100, "D1"))
	assert.NotEqual(t, Digest(100, "D1"), Digest(101, "D1"))
	assert.NotEqual(t, Digest(100, "D1"), Digest(100, "D2"))
}

func TestVerifyChallenge(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	pub := EncodePublicKey(priv)

	sig := SignChallenge(priv, 100, "D1")
	require.Len(t, sig, 128)

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, VerifyChallenge(Challenge{DeviceID: "D1", Timestamp: 100, Signature: sig}, pub))
	})

	t.Run("uncompressed public key", func(t *testing.T) {
		uncompressed := hex.EncodeToString(priv.PubKey().SerializeUncompressed())
		assert.NoError(t, VerifyChallenge(Challenge{DeviceID: "D1", Timestamp: 100, Signature: sig}, uncompressed))
	})

	t.Run("different timestamp", func(t *testing.T) {
		err := VerifyChallenge(Challenge{DeviceID: "D1", Timestamp: 101, Signature: sig}, pub)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("different device", func(t *testing.T) {
		err := VerifyChallenge(Challenge{DeviceID: "D2", Timestamp: 100, Signature: sig}, pub)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("other key", func(t *testing.T) {
		other, err := secp256k1.GeneratePrivateKey()
		require.NoError(t, err)
		err = VerifyChallenge(Challenge{DeviceID: "D1", Timestamp: 100, Signature: sig}, EncodePublicKey(other))
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("malformed public key", func(t *testing.T) {
		for _, key := range []string{"zz", "", "04" + strings.Repeat("00", 64)} {
			err := VerifyChallenge(Challenge{DeviceID: "D1", Timestamp: 100, Signature: sig}, key)
			assert.ErrorIs(t, err, ErrMalformedPublicKey, key)
		}
	})

	t.Run("malformed signature", func(t *testing.T) {
		for _, s := range []string{"", "xyz", sig[:126], sig + "00", strings.Repeat("00", 64), strings.Repeat("ff", 64)} {
			err := VerifyChallenge(Challenge{DeviceID: "D1", Timestamp: 100, Signature: s}, pub)
			assert.ErrorIs(t, err, ErrMalformedSignature, s)
		}
	})

	t.Run("high s signature", func(t *testing.T) {
		raw, err := hex.DecodeString(sig)
		require.NoError(t, err)

		var r, s secp256k1.ModNScalar
		r.SetByteSlice(raw[:32])
		s.SetByteSlice(raw[32:])
		require.False(t, s.IsOverHalfOrder())
		s.Negate()

		rb, sb := r.Bytes(), s.Bytes()
		malleated := hex.EncodeToString(append(rb[:], sb[:]...))
		err = VerifyChallenge(Challenge{DeviceID: "D1", Timestamp: 100, Signature: malleated}, pub)
		assert.ErrorIs(t, err, ErrMalformedSignature)
	})
}

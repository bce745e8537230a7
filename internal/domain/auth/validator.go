package auth

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/benbjohnson/clock"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// SessionValidator verifies RS256 session tokens issued by the identity service
type SessionValidator struct {
	key    jwk.Key
	leeway time.Duration
	clock  clock.Clock
}

// NewSessionValidator creates a validator. leeway is the clock skew tolerated on exp.
func NewSessionValidator(key jwk.Key, leeway time.Duration, clk clock.Clock) *SessionValidator {
	return &SessionValidator{key: key, leeway: leeway, clock: clk}
}

// Validate checks the signature and expiry of token and returns its principal
func (v *SessionValidator) Validate(token string) (*Principal, error) {
	tok, exp, err := v.parse(token)
	if err != nil {
		return nil, err
	}

	userID, err := userIDClaim(tok)
	if err != nil {
		return nil, apperr.WrapAs(apperr.KindUnauthorized, err, "auth.Validate")
	}

	return &Principal{UserID: userID, Expiry: exp, Token: token}, nil
}

// Expiry validates token the same way as Validate and returns only its exp claim
func (v *SessionValidator) Expiry(token string) (time.Time, error) {
	_, exp, err := v.parse(token)
	return exp, err
}

func (v *SessionValidator) parse(token string) (jwt.Token, time.Time, error) {
	tok, err := jwt.Parse(
		[]byte(token),
		jwt.WithKey(jwa.RS256(), v.key),
		jwt.WithAcceptableSkew(v.leeway),
		jwt.WithClock(jwt.ClockFunc(v.clock.Now)),
	)
	if err != nil {
		return nil, time.Time{}, apperr.WrapAs(apperr.KindUnauthorized, err, "auth.Parse")
	}

	exp, ok := tok.Expiration()
	if !ok || exp.IsZero() {
		return nil, time.Time{}, apperr.WrapAs(apperr.KindUnauthorized, ErrMissingExpiry, "auth.Parse")
	}

	return tok, exp, nil
}

func userIDClaim(tok jwt.Token) (int64, error) {
	var raw any
	if err := tok.Get("user_id", &raw); err != nil {
		return 0, ErrMissingUserID
	}

	switch id := raw.(type) {
	case float64:
		if id != math.Trunc(id) {
			return 0, ErrMissingUserID
		}
		return int64(id), nil
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return 0, ErrMissingUserID
		}
		return n, nil
	case int64:
		return id, nil
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, ErrMissingUserID
		}
		return n, nil
	default:
		return 0, ErrMissingUserID
	}
}

package auth

import "time"

// Principal is the authenticated caller derived from a session token
type Principal struct {
	UserID int64
	Expiry time.Time
	Token  string
}

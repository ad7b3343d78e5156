package model

import (
	"time"
)

// TokenPair is the credential pair issued by the planner backend. The two
// tokens are issued together and rotated together: a pair is either whole or
// absent, never one token without the other.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// Identity holds the claims decoded from the access token. It is derived
// state: it is recomputed whenever the token pair changes and never stored on
// its own.
type Identity struct {
	Subject   string
	Username  string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the access token the identity was decoded from has
// passed its expiry claim.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Session is the authenticated state of the client: the current token pair
// plus the identity derived from its access token.
type Session struct {
	Pair     TokenPair
	Identity Identity
}

package token

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"

	authErrors "github.com/explanner/planner-client/internal/auth/errors"
	"github.com/explanner/planner-client/internal/auth/model"
)

// AccessClaims mirrors the claims the planner backend puts into its access
// tokens. user_id and username are backend-specific additions next to the
// registered claim set.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username string      `json:"username"`
	UserID   json.Number `json:"user_id"`
}

// Decode extracts the identity claims from a raw access token without
// verifying the signature. The client never holds the signing key; the
// backend verifies tokens on every API call, the client only needs the
// claims for display and expiry tracking.
func Decode(raw string) (model.Identity, error) {
	var claims AccessClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return model.Identity{}, authErrors.ErrInvalidToken
	}

	identity := model.Identity{
		Subject:  claims.Subject,
		Username: claims.Username,
	}
	if identity.Subject == "" {
		identity.Subject = claims.UserID.String()
	}
	if identity.Username == "" {
		identity.Username = identity.Subject
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	return identity, nil
}

package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the opaque bearer token issued by the notes API.
// The zero value means "not authenticated".
type Credential string

// IsZero reports whether no credential is present.
func (c Credential) IsZero() bool {
	return c == ""
}

// String returns the raw token. Use Redacted for anything that may be logged.
func (c Credential) String() string {
	return string(c)
}

// BearerHeader returns the Authorization header value for the credential.
func (c Credential) BearerHeader() string {
	return "Bearer " + string(c)
}

// Redacted returns a short masked form: first 4 and last 4 characters.
func (c Credential) Redacted() string {
	if len(c) <= 12 {
		if c == "" {
			return ""
		}
		return "***"
	}
	return string(c[:4]) + "..." + string(c[len(c)-4:])
}

// ExpiresAt decodes the exp claim when the credential is a JWT.
//
// The token is parsed without signature verification: the client never holds
// the signing key, and the value is only used for display and logging.
// Refresh stays reactive (401-driven) regardless of what this returns.
func (c Credential) ExpiresAt() (time.Time, bool) {
	if c.IsZero() {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(string(c), &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Subject returns the sub claim when the credential is a JWT.
func (c Credential) Subject() string {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(string(c), &claims); err != nil {
		return ""
	}
	return claims.Subject
}

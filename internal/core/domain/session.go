package domain

import (
	"slices"
	"strings"
)

// Identity is the minimal authenticated user profile cached alongside
// the Credential. It is persisted as JSON under the "user" key.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	// Type is the account role reported at login (optional).
	Type string `json:"type,omitempty"`
}

// Validate checks the fields the session store relies on.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ErrSessionInvalid.WithDetails("identity id is required")
	}
	return nil
}

// Session is an immutable snapshot of the authentication state.
//
// Snapshots are produced only by the session store, which guarantees
// IsAuthenticated() == (Identity != nil).
type Session struct {
	Credential Credential `json:"-"`
	Identity   *Identity  `json:"user"`
}

// Anonymous returns the unauthenticated session.
func Anonymous() Session {
	return Session{}
}

// Authenticated builds a session from a credential and identity.
// The identity is copied so the snapshot stays immutable.
func Authenticated(cred Credential, id Identity) Session {
	return Session{Credential: cred, Identity: &id}
}

// IsAuthenticated reports whether a credential is present.
func (s Session) IsAuthenticated() bool {
	return !s.Credential.IsZero()
}

// UserID returns the identity id or "" for anonymous sessions.
func (s Session) UserID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

// RequireAuthenticated returns ErrNotAuthenticated for anonymous sessions.
func (s Session) RequireAuthenticated() error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// RequireRole gates on the identity's role. An empty roles list, or an
// identity without a reported type, is allowed through once authenticated.
func (s Session) RequireRole(roles ...string) error {
	if err := s.RequireAuthenticated(); err != nil {
		return err
	}
	if len(roles) == 0 || s.Identity == nil || s.Identity.Type == "" {
		return nil
	}
	if !slices.Contains(roles, s.Identity.Type) {
		return ErrForbidden.WithDetails("role " + s.Identity.Type + " not allowed")
	}
	return nil
}

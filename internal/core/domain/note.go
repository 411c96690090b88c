package domain

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Note field limits enforced before a create/update is sent.
const (
	MinNoteTitleLength   = 3
	MaxNoteTitleLength   = 100
	MinNoteContentLength = 10
	MaxNoteContentLength = 5000

	MinNameLength     = 2
	MaxNameLength     = 100
	MinPasswordLength = 6
)

// NoteAuthor is the embedded owner of a note.
type NoteAuthor struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Note is a note as returned by the notes API.
type Note struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	User      NoteAuthor `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// OwnedBy reports whether the note belongs to the given identity.
func (n *Note) OwnedBy(id *Identity) bool {
	if n == nil || id == nil || id.ID == "" {
		return false
	}
	return n.User.ID == id.ID
}

// NoteInput is the create/update payload.
type NoteInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Normalize trims surrounding whitespace in place.
func (in *NoteInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
}

// Validate checks title and content lengths after trimming.
func (in NoteInput) Validate() error {
	in.Normalize()

	var violations []string
	violations = appendLength(violations, "title", in.Title, MinNoteTitleLength, MaxNoteTitleLength)
	violations = appendLength(violations, "content", in.Content, MinNoteContentLength, MaxNoteContentLength)

	if len(violations) > 0 {
		return ErrValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// Permission is a named permission attached to a profile.
type Permission struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Profile is the authenticated user's profile.
type Profile struct {
	ID          string       `json:"_id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// ProfileUpdate carries the mutable profile fields. Empty fields are omitted.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Validate requires at least one field and checks each present one.
func (p ProfileUpdate) Validate() error {
	var violations []string
	if p.Name == "" && p.Email == "" {
		violations = append(violations, "nothing to update")
	}
	if p.Name != "" {
		violations = appendLength(violations, "name", strings.TrimSpace(p.Name), MinNameLength, MaxNameLength)
	}
	if p.Email != "" && !validEmail(p.Email) {
		violations = append(violations, "email is not a valid address")
	}
	if len(violations) > 0 {
		return ErrValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login form.
func (in LoginInput) Validate() error {
	var violations []string
	if !validEmail(in.Email) {
		violations = append(violations, "email is not a valid address")
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		violations = append(violations, "password must be at least 6 characters")
	}
	if len(violations) > 0 {
		return ErrValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the registration form.
func (in RegisterInput) Validate() error {
	var violations []string
	violations = appendLength(violations, "name", strings.TrimSpace(in.Name), MinNameLength, MaxNameLength)
	if err := (LoginInput{Email: in.Email, Password: in.Password}).Validate(); err != nil {
		if de, ok := err.(*DomainError); ok {
			violations = append(violations, de.Details)
		}
	}
	if len(violations) > 0 {
		return ErrValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

func appendLength(violations []string, field, value string, min, max int) []string {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		return append(violations, field+" is required")
	case n < min:
		return append(violations, field+" is too short")
	case n > max:
		return append(violations, field+" is too long")
	}
	return violations
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

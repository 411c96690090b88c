package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNoteInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      NoteInput
		wantErr string
	}{
		{"valid", NoteInput{Title: "Groceries", Content: "eggs, milk, bread"}, ""},
		{"trimmed valid", NoteInput{Title: "  abc  ", Content: "  0123456789  "}, ""},
		{"missing title", NoteInput{Title: "   ", Content: "0123456789"}, "title is required"},
		{"short title", NoteInput{Title: "ab", Content: "0123456789"}, "title is too short"},
		{"long title", NoteInput{Title: strings.Repeat("x", 101), Content: "0123456789"}, "title is too long"},
		{"short content", NoteInput{Title: "abc", Content: "too short"}, "content is too short"},
		{"long content", NoteInput{Title: "abc", Content: strings.Repeat("y", 5001)}, "content is too long"},
		{"both invalid", NoteInput{}, "title is required; content is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestNoteInput_ValidateDoesNotMutate(t *testing.T) {
	in := NoteInput{Title: "  abc  ", Content: "  0123456789  "}
	_ = in.Validate()
	if in.Title != "  abc  " {
		t.Error("Validate should not modify the receiver")
	}
	in.Normalize()
	if in.Title != "abc" || in.Content != "0123456789" {
		t.Errorf("Normalize() = %+v", in)
	}
}

func TestNote_OwnedBy(t *testing.T) {
	n := &Note{ID: "n1", User: NoteAuthor{ID: "u1"}}
	if !n.OwnedBy(&Identity{ID: "u1"}) {
		t.Error("note should be owned by u1")
	}
	if n.OwnedBy(&Identity{ID: "u2"}) {
		t.Error("note should not be owned by u2")
	}
	if n.OwnedBy(nil) {
		t.Error("nil identity owns nothing")
	}
	var nilNote *Note
	if nilNote.OwnedBy(&Identity{ID: "u1"}) {
		t.Error("nil note is owned by nobody")
	}
}

func TestLoginInput_Validate(t *testing.T) {
	if err := (LoginInput{Email: "a@example.com", Password: "secret1"}).Validate(); err != nil {
		t.Errorf("valid login: %v", err)
	}
	err := (LoginInput{Email: "not-an-email", Password: "123"}).Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "email") || !strings.Contains(err.Error(), "password") {
		t.Errorf("expected both violations, got %q", err)
	}
	if err := (LoginInput{Email: "Alice <a@example.com>", Password: "secret1"}).Validate(); err == nil {
		t.Error("display-name address should be rejected")
	}
}

func TestRegisterInput_Validate(t *testing.T) {
	if err := (RegisterInput{Name: "Al", Email: "a@example.com", Password: "secret1"}).Validate(); err != nil {
		t.Errorf("valid registration: %v", err)
	}
	err := (RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1"}).Validate()
	if err == nil || !strings.Contains(err.Error(), "name is too short") {
		t.Errorf("short name: got %v", err)
	}
}

func TestProfileUpdate_Validate(t *testing.T) {
	if err := (ProfileUpdate{}).Validate(); err == nil {
		t.Error("empty update should fail")
	}
	if err := (ProfileUpdate{Name: "Bob"}).Validate(); err != nil {
		t.Errorf("name update: %v", err)
	}
	if err := (ProfileUpdate{Email: "bad"}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("bad email: got %v", err)
	}
}

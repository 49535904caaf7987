package validation

import (
	"errors"
	"testing"

	"github.com/studybud/backend/internal/apperr"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Confirm  string `json:"confirm_password" validate:"eqfield=Password"`
}

func TestStructMessages(t *testing.T) {
	tests := []struct {
		name  string
		input signup
		want  string
	}{
		{"bad email", signup{Email: "nope", Password: "password1", Confirm: "password1"}, "invalid email address"},
		{"short password", signup{Email: "a@b.com", Password: "short", Confirm: "short"}, "password must be at least 8 characters"},
		{"missing email", signup{Password: "password1", Confirm: "password1"}, "email is required"},
		{"mismatch", signup{Email: "a@b.com", Password: "password1", Confirm: "password2"}, "confirm password does not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != tt.want {
				t.Fatalf("message = %q, want %q", err.Error(), tt.want)
			}
		})
	}

	if err := Struct(signup{Email: "a@b.com", Password: "password1", Confirm: "password1"}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestEmail(t *testing.T) {
	if !Email("a@b.com") {
		t.Fatal("expected a@b.com to be valid")
	}
	if Email("a@") || Email("") {
		t.Fatal("expected malformed addresses to be rejected")
	}
}

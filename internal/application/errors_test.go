package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/conference-scheduler/internal/scheduler"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"title": "required", "email": "invalid"}}
	if got := withFields.Error(); got != "validation failed: email, title" {
		t.Fatalf("expected sorted field list, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	base.add("first", "ignored")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected first message to win, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge("", other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge("sessions[3].", other)
	if got := base.FieldErrors["sessions[3].second"]; got != "another" {
		t.Fatalf("expected prefixed field, got %v", base.FieldErrors)
	}

	base.merge("", nil)
	if len(base.FieldErrors) != 3 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUnauthorized, "unauthorized"},
		{fmt.Errorf("wrapped: %w", ErrNotFound), "not_found"},
		{ErrAlreadyExists, "already_exists"},
		{fmt.Errorf("%w: bogus", ErrInvalidAction), "invalid_action"},
		{&ConflictError{Conflicts: []scheduler.Conflict{{Type: scheduler.ConflictTypeRoom}}}, "conflict"},
		{&ValidationError{FieldErrors: map[string]string{"title": "required"}}, "validation"},
		{errors.New("disk full"), "unexpected"},
	}

	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

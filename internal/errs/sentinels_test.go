package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_IsAndMessage(t *testing.T) {
	t.Parallel()

	ve := &ValidationError{Fields: map[string]string{"lastName": "required", "email": "email"}}

	if !errors.Is(ve, ErrValidation) {
		t.Fatalf("want errors.Is(ve, ErrValidation)")
	}
	if errors.Is(ve, ErrNotFound) {
		t.Fatalf("validation error must not match ErrNotFound")
	}

	wrapped := fmt.Errorf("patch account 7: %w", ve)
	var got *ValidationError
	if !errors.As(wrapped, &got) || got.Fields["lastName"] != "required" {
		t.Fatalf("errors.As lost fields: %v", wrapped)
	}

	const want = "validation failed: email=email, lastName=required"
	if ve.Error() != want {
		t.Fatalf("Error()=%q, want %q", ve.Error(), want)
	}
}

func TestNewValidationError(t *testing.T) {
	t.Parallel()

	ve := NewValidationError("password", "required")
	if len(ve.Fields) != 1 || ve.Fields["password"] != "required" {
		t.Fatalf("unexpected fields: %v", ve.Fields)
	}
}

package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundf(t *testing.T) {
	err := NotFoundf("Column '%s' not found in table '%s'", "age", "users")

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected error to match ErrNotFound")
	}
	if errors.Is(err, ErrInvalidArgument) {
		t.Error("error should not match ErrInvalidArgument")
	}

	want := "Column 'age' not found in table 'users'"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestInvalidArgumentf(t *testing.T) {
	err := InvalidArgumentf("Sample size must be a positive integer")

	if !errors.Is(err, ErrInvalidArgument) {
		t.Error("expected error to match ErrInvalidArgument")
	}

	want := "Sample size must be a positive integer"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrappedErrorSurvivesFurtherWrapping(t *testing.T) {
	err := fmt.Errorf("resolve columns: %w", NotFoundf("Table '%s' not found", "orders"))

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected wrapped error to still match ErrNotFound")
	}
}

package common

import (
	"errors"
	"testing"
)

func TestConflictf_WrapsSentinel(t *testing.T) {
	err := Conflictf("taxId already registered")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected errors.Is(err, ErrConflict), got %v", err)
	}
	if err.Error() != "conflict: taxId already registered" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestValidationf_WrapsSentinel(t *testing.T) {
	err := Validationf("missing email")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected errors.Is(err, ErrValidation), got %v", err)
	}
}

func TestTransientf_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transientf("directory lookup: %v", cause)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected errors.Is(err, ErrTransient), got %v", err)
	}
}

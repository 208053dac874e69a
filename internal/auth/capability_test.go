package auth

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"ammcore/internal/ammerr"
)

func TestRequire(t *testing.T) {
	c := NewCapability()
	if err := Require(c, c.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewCapability()
	if err := Require(other, c.ID()); !errors.Is(err, ammerr.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	var zero Capability
	if err := Require(zero, uuid.Nil); !errors.Is(err, ammerr.ErrUnauthorized) {
		t.Fatalf("nil identity must never authorize, got %v", err)
	}
}

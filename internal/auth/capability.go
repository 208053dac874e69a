package auth

import (
	"github.com/google/uuid"

	"ammcore/internal/ammerr"
)

// Capability is an unforgeable handle passed into privileged calls. The
// engine compares its identity against the identity it was created with;
// there is no global role table.
type Capability struct {
	id uuid.UUID
}

// NewCapability mints a fresh capability.
func NewCapability() Capability {
	return Capability{id: uuid.New()}
}

// CapabilityFromID rebuilds a capability from a persisted identity.
func CapabilityFromID(id uuid.UUID) Capability {
	return Capability{id: id}
}

func (c Capability) ID() uuid.UUID {
	return c.id
}

// Require fails with ErrUnauthorized unless c carries the expected identity.
func Require(c Capability, expected uuid.UUID) error {
	if expected == uuid.Nil || c.id != expected {
		return ammerr.Wrapf(ammerr.ErrUnauthorized, "capability %s", c.id)
	}
	return nil
}

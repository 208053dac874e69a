package governance

import (
	"time"

	"ammcore/internal/ammerr"
	"ammcore/internal/fees"
	"ammcore/internal/risk"
)

const (
	// Delay is the minimum time between proposing and executing a change.
	Delay = uint64(48 * time.Hour / time.Millisecond)
	// ExpiryWindow is how long after Delay a proposal stays executable.
	ExpiryWindow = uint64(7 * 24 * time.Hour / time.Millisecond)
)

type Kind string

const (
	KindFeeChange       Kind = "fee_change"
	KindParameterChange Kind = "parameter_change"
	KindPause           Kind = "pause"
)

// Payload carries the change a proposal applies. Exactly the field matching
// the proposal kind is set.
type Payload struct {
	Fees   *fees.Schedule `json:"fees,omitempty"`
	Params *risk.Params   `json:"params,omitempty"`
	Paused *bool          `json:"paused,omitempty"`
}

func (p Payload) validate(kind Kind) error {
	switch kind {
	case KindFeeChange:
		if p.Fees == nil {
			return ammerr.Wrapf(ammerr.ErrInvalidParameter, "fee change without fee schedule")
		}
		return p.Fees.Validate()
	case KindParameterChange:
		if p.Params == nil {
			return ammerr.Wrapf(ammerr.ErrInvalidParameter, "parameter change without parameters")
		}
		return p.Params.Validate()
	case KindPause:
		if p.Paused == nil {
			return ammerr.Wrapf(ammerr.ErrInvalidParameter, "pause proposal without flag")
		}
		return nil
	default:
		return ammerr.Wrapf(ammerr.ErrInvalidParameter, "unknown proposal kind %q", kind)
	}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusExecuted  Status = "executed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Proposal is a queued privileged change against one pool. It only moves
// forward: pending to executed, cancelled or expired.
type Proposal struct {
	ID           uint64  `json:"id"`
	PoolID       string  `json:"pool_id"`
	Kind         Kind    `json:"kind"`
	Payload      Payload `json:"payload"`
	CreatedAt    uint64  `json:"created_at"`
	ExecutableAt uint64  `json:"executable_at"`
	ExpiresAt    uint64  `json:"expires_at"`
	Executed     bool    `json:"executed"`
	Cancelled    bool    `json:"cancelled"`
}

// Status reports the proposal state as seen at now.
func (p Proposal) Status(now uint64) Status {
	switch {
	case p.Executed:
		return StatusExecuted
	case p.Cancelled:
		return StatusCancelled
	case now > p.ExpiresAt:
		return StatusExpired
	case now >= p.ExecutableAt:
		return StatusReady
	default:
		return StatusPending
	}
}

func (p Proposal) checkExecutable(now uint64) error {
	if p.Executed || p.Cancelled {
		return ammerr.Wrapf(ammerr.ErrProposalAlreadyExecuted, "proposal %d", p.ID)
	}
	if now < p.ExecutableAt {
		return ammerr.Wrapf(ammerr.ErrProposalNotReady, "proposal %d executable at %d, now %d", p.ID, p.ExecutableAt, now)
	}
	if now > p.ExpiresAt {
		return ammerr.Wrapf(ammerr.ErrProposalExpired, "proposal %d expired at %d, now %d", p.ID, p.ExpiresAt, now)
	}
	return nil
}

func clonePayload(p Payload) Payload {
	var out Payload
	if p.Fees != nil {
		f := *p.Fees
		out.Fees = &f
	}
	if p.Params != nil {
		r := *p.Params
		out.Params = &r
	}
	if p.Paused != nil {
		b := *p.Paused
		out.Paused = &b
	}
	return out
}

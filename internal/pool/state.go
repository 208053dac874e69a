package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"ammcore/internal/ammerr"
	"ammcore/internal/cpmm"
	"ammcore/internal/fees"
	"ammcore/internal/risk"
	"ammcore/internal/stableswap"
)

type Kind string

const (
	KindConstantProduct Kind = "constant_product"
	KindStable          Kind = "stable"
)

func (k Kind) Valid() bool {
	return k == KindConstantProduct || k == KindStable
}

// State is everything a pool persists. It is a plain value: copying it
// yields an independent working copy.
type State struct {
	ID          string
	Kind        Kind
	AssetA      string
	AssetB      string
	ReserveA    uint64
	ReserveB    uint64
	TotalShares uint64

	Fees fees.Schedule
	Acc  fees.Accumulator

	// LP fees are held outside the reserves until claimed or compounded.
	LPFeeA       uint64
	LPFeeB       uint64
	ProtocolFeeA uint64
	ProtocolFeeB uint64
	CreatorFeeA  uint64
	CreatorFeeB  uint64

	Paused bool
	Risk   risk.Params
	Ramp   stableswap.Ramp
}

func (s State) guard() risk.Guard {
	return risk.Guard{Params: s.Risk, Paused: s.Paused}
}

func (s State) reserves(dir Direction) (uint64, uint64) {
	if dir == AToB {
		return s.ReserveA, s.ReserveB
	}
	return s.ReserveB, s.ReserveA
}

// Position is one LP's claim on a pool.
type Position struct {
	ID     uuid.UUID
	PoolID string
	Owner  common.Address
	Shares uint64
	Debt   fees.Debt

	// Display values, refreshed on demand.
	ValueA uint64
	ValueB uint64
}

// Snapshot is a consistent read of a pool and its positions.
type Snapshot struct {
	State     State
	Positions []Position
}

// Verify checks that the positions plus the burned minimum account for every
// issued share.
func (s Snapshot) Verify() error {
	if s.State.TotalShares == 0 {
		if len(s.Positions) != 0 {
			return ammerr.Wrapf(ammerr.ErrInvariantViolation, "pool %s has positions but no shares", s.State.ID)
		}
		return nil
	}
	var sum uint64
	for _, pos := range s.Positions {
		sum += pos.Shares
	}
	if sum+cpmm.MinimumLiquidity != s.State.TotalShares {
		return ammerr.Wrapf(ammerr.ErrInvariantViolation, "pool %s: positions hold %d shares, total %d", s.State.ID, sum, s.State.TotalShares)
	}
	return nil
}

package pool

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ammcore/internal/ammerr"
	"ammcore/internal/cpmm"
	"ammcore/internal/risk"
	"ammcore/internal/stableswap"
)

// settle pays out the pending fees of pos from the LP fee balance of st and
// re-baselines its debt. Both arguments are working copies.
func (p *Pool) settle(st *State, pos *Position) (uint64, uint64, error) {
	feeA, feeB, debt, err := st.Acc.Settle(pos.Debt, pos.Shares)
	if err != nil {
		return 0, 0, err
	}
	if feeA > st.LPFeeA || feeB > st.LPFeeB {
		p.logger.Warn("lp fee balance below claim",
			zap.Stringer("position", pos.ID),
			zap.Uint64("claim_a", feeA), zap.Uint64("balance_a", st.LPFeeA),
			zap.Uint64("claim_b", feeB), zap.Uint64("balance_b", st.LPFeeB),
		)
		feeA = min(feeA, st.LPFeeA)
		feeB = min(feeB, st.LPFeeB)
	}
	st.LPFeeA -= feeA
	st.LPFeeB -= feeB
	pos.Debt = debt
	return feeA, feeB, nil
}

// PendingFees reports what WithdrawFees would pay the position right now.
func (p *Pool) PendingFees(id uuid.UUID) (uint64, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[id]
	if !ok {
		return 0, 0, ammerr.Wrapf(ammerr.ErrPositionNotFound, "position %s in pool %s", id, p.id)
	}
	return p.state.Acc.Pending(pos.Debt, pos.Shares)
}

type WithdrawFeesResult struct {
	FeeA uint64 `json:"fee_a"`
	FeeB uint64 `json:"fee_b"`
}

// WithdrawFees pays out the position's accrued LP fees. A second call with no
// swap in between pays nothing. Allowed while paused.
func (p *Pool) WithdrawFees(owner common.Address, id uuid.UUID, deadline, now uint64) (WithdrawFeesResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := risk.CheckDeadline(deadline, now); err != nil {
		return WithdrawFeesResult{}, err
	}
	st := p.state
	pos, err := p.ownedPosition(id, owner)
	if err != nil {
		return WithdrawFeesResult{}, err
	}
	feeA, feeB, err := p.settle(&st, &pos)
	if err != nil {
		return WithdrawFeesResult{}, err
	}
	p.state = st
	p.commitPosition(pos)

	p.logger.Debug("withdraw fees",
		zap.String("op", "withdraw_fees"),
		zap.Stringer("position", id),
		zap.Uint64("fee_a", feeA),
		zap.Uint64("fee_b", feeB),
	)
	return WithdrawFeesResult{FeeA: feeA, FeeB: feeB}, nil
}

type CompoundRequest struct {
	Owner                common.Address
	PositionID           uuid.UUID
	MinLiquidityIncrease uint64
	Deadline             uint64
	Now                  uint64
}

type CompoundResult struct {
	SharesAdded uint64 `json:"shares_added"`
	UsedA       uint64 `json:"used_a"`
	UsedB       uint64 `json:"used_b"`
	// Fee remainder that could not be matched to the pool ratio.
	RefundA uint64 `json:"refund_a"`
	RefundB uint64 `json:"refund_b"`
}

// AutoCompound claims the position's pending fees and deposits them back at
// the pool ratio in one step.
func (p *Pool) AutoCompound(req CompoundRequest) (CompoundResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.autoCompoundLocked(req)
	if err != nil {
		p.logger.Debug("auto compound rejected", zap.String("op", "auto_compound"), zap.Error(err))
		return CompoundResult{}, err
	}
	p.logger.Debug("auto compound",
		zap.String("op", "auto_compound"),
		zap.Stringer("position", req.PositionID),
		zap.Uint64("shares", res.SharesAdded),
	)
	return res, nil
}

func (p *Pool) autoCompoundLocked(req CompoundRequest) (CompoundResult, error) {
	st := p.state
	if err := st.guard().CheckActive(); err != nil {
		return CompoundResult{}, err
	}
	if err := risk.CheckDeadline(req.Deadline, req.Now); err != nil {
		return CompoundResult{}, err
	}
	pos, err := p.ownedPosition(req.PositionID, req.Owner)
	if err != nil {
		return CompoundResult{}, err
	}

	feeA, feeB, err := p.settle(&st, &pos)
	if err != nil {
		return CompoundResult{}, err
	}
	if feeA+feeB < st.Risk.MinCompoundFees {
		return CompoundResult{}, ammerr.Wrapf(ammerr.ErrInsufficientFeesToCompound,
			"pending fees %d/%d below %d", feeA, feeB, st.Risk.MinCompoundFees)
	}

	// Match the claimed fees to the pool ratio; the rest is refunded.
	match, err := cpmm.ProportionalShares(feeA, feeB, st.ReserveA, st.ReserveB, st.TotalShares)
	if err != nil {
		if errors.Is(err, ammerr.ErrZeroAmount) || errors.Is(err, ammerr.ErrInsufficientLiquidity) {
			return CompoundResult{}, ammerr.Wrapf(ammerr.ErrInsufficientFeesToCompound,
				"fees %d/%d cannot be matched to the pool ratio", feeA, feeB)
		}
		return CompoundResult{}, err
	}
	shares := match.Shares
	if st.Kind == KindStable {
		mint, err := stableswap.DepositShares(match.UsedA, match.UsedB, st.ReserveA, st.ReserveB, st.TotalShares, st.Ramp.Current(req.Now))
		if err != nil {
			if errors.Is(err, ammerr.ErrInsufficientLiquidity) {
				return CompoundResult{}, ammerr.Wrapf(ammerr.ErrInsufficientFeesToCompound, "fees %d/%d mint no shares", feeA, feeB)
			}
			return CompoundResult{}, err
		}
		shares = mint.Shares
	}
	if shares < req.MinLiquidityIncrease {
		return CompoundResult{}, ammerr.Wrapf(ammerr.ErrExcessiveSlippage,
			"compound mints %d shares, minimum %d", shares, req.MinLiquidityIncrease)
	}

	st.ReserveA += match.UsedA
	st.ReserveB += match.UsedB
	st.TotalShares += shares
	pos.Shares += shares
	// The new shares start earning from the current accumulator.
	pos.Debt = st.Acc.Snapshot()

	p.state = st
	p.commitPosition(pos)

	return CompoundResult{
		SharesAdded: shares,
		UsedA:       match.UsedA,
		UsedB:       match.UsedB,
		RefundA:     match.RefundA,
		RefundB:     match.RefundB,
	}, nil
}

package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ammcore/internal/ammerr"
	"ammcore/internal/cpmm"
	"ammcore/internal/risk"
	"ammcore/internal/stableswap"
)

type AddLiquidityRequest struct {
	Owner common.Address
	// PositionID tops up an existing position. When zero a new position is
	// opened under NewPositionID, or a random id if that is zero too.
	PositionID    uuid.UUID
	NewPositionID uuid.UUID
	AmountA       uint64
	AmountB       uint64
	MinShares     uint64
	Deadline      uint64
	Now           uint64
}

type AddLiquidityResult struct {
	PositionID uuid.UUID `json:"position_id"`
	Shares     uint64    `json:"shares"`
	UsedA      uint64    `json:"used_a"`
	UsedB      uint64    `json:"used_b"`
	RefundA    uint64    `json:"refund_a"`
	RefundB    uint64    `json:"refund_b"`
	// Fees settled on a topped-up position before its shares grew.
	FeeA uint64 `json:"fee_a"`
	FeeB uint64 `json:"fee_b"`
}

// AddLiquidity deposits into the pool and mints shares to a position. The
// first deposit burns cpmm.MinimumLiquidity shares.
func (p *Pool) AddLiquidity(req AddLiquidityRequest) (AddLiquidityResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.addLiquidityLocked(req)
	if err != nil {
		p.logger.Debug("add liquidity rejected", zap.String("op", "add_liquidity"), zap.Error(err))
		return AddLiquidityResult{}, err
	}
	p.logger.Debug("add liquidity",
		zap.String("op", "add_liquidity"),
		zap.Stringer("position", res.PositionID),
		zap.Uint64("shares", res.Shares),
		zap.Uint64("used_a", res.UsedA),
		zap.Uint64("used_b", res.UsedB),
	)
	return res, nil
}

func (p *Pool) addLiquidityLocked(req AddLiquidityRequest) (AddLiquidityResult, error) {
	st := p.state
	g := st.guard()
	if err := g.CheckActive(); err != nil {
		return AddLiquidityResult{}, err
	}
	if err := risk.CheckDeadline(req.Deadline, req.Now); err != nil {
		return AddLiquidityResult{}, err
	}
	if req.AmountA == 0 || req.AmountB == 0 {
		return AddLiquidityResult{}, ammerr.Wrapf(ammerr.ErrZeroAmount, "deposit %d/%d", req.AmountA, req.AmountB)
	}

	var (
		pos Position
		res AddLiquidityResult
		err error
	)
	if req.PositionID != uuid.Nil {
		pos, err = p.ownedPosition(req.PositionID, req.Owner)
		if err != nil {
			return AddLiquidityResult{}, err
		}
	} else {
		id := req.NewPositionID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, exists := p.positions[id]; exists {
			return AddLiquidityResult{}, ammerr.Wrapf(ammerr.ErrInvalidParameter, "position %s already exists", id)
		}
		pos = Position{ID: id, PoolID: st.ID, Owner: req.Owner}
	}

	mint, err := mintShares(st, req.AmountA, req.AmountB, req.Now)
	if err != nil {
		return AddLiquidityResult{}, err
	}
	if mint.Shares < req.MinShares {
		return AddLiquidityResult{}, ammerr.Wrapf(ammerr.ErrExcessiveSlippage, "minted %d shares, minimum %d", mint.Shares, req.MinShares)
	}

	// Settle before the share count changes so earned fees are not diluted.
	if pos.Shares > 0 {
		res.FeeA, res.FeeB, err = p.settle(&st, &pos)
		if err != nil {
			return AddLiquidityResult{}, err
		}
	} else {
		pos.Debt = st.Acc.Snapshot()
	}

	beforeA, beforeB := st.ReserveA, st.ReserveB
	st.ReserveA += mint.UsedA
	st.ReserveB += mint.UsedB
	st.TotalShares += mint.Shares + mint.Burned
	pos.Shares += mint.Shares
	if st.Kind == KindConstantProduct {
		if err := cpmm.CheckK(beforeA, beforeB, st.ReserveA, st.ReserveB); err != nil {
			return AddLiquidityResult{}, err
		}
	}

	p.state = st
	p.commitPosition(pos)

	res.PositionID = pos.ID
	res.Shares = mint.Shares
	res.UsedA, res.UsedB = mint.UsedA, mint.UsedB
	res.RefundA, res.RefundB = mint.RefundA, mint.RefundB
	return res, nil
}

// mintShares prices a deposit against st without changing it.
func mintShares(st State, amountA, amountB, now uint64) (cpmm.MintResult, error) {
	if st.ReserveA+amountA < st.ReserveA || st.ReserveB+amountB < st.ReserveB {
		return cpmm.MintResult{}, ammerr.Wrapf(ammerr.ErrOverflow, "deposit %d/%d", amountA, amountB)
	}
	if st.TotalShares == 0 {
		if st.Kind == KindStable {
			return stableswap.InitialShares(amountA, amountB, st.Ramp.Current(now))
		}
		return cpmm.InitialShares(amountA, amountB)
	}
	if err := st.guard().CheckRatio(amountA, amountB, st.ReserveA, st.ReserveB); err != nil {
		return cpmm.MintResult{}, err
	}
	if st.Kind == KindStable {
		return stableswap.DepositShares(amountA, amountB, st.ReserveA, st.ReserveB, st.TotalShares, st.Ramp.Current(now))
	}
	return cpmm.ProportionalShares(amountA, amountB, st.ReserveA, st.ReserveB, st.TotalShares)
}

type RemoveLiquidityRequest struct {
	Owner      common.Address
	PositionID uuid.UUID
	Shares     uint64
	MinA       uint64
	MinB       uint64
	Deadline   uint64
	Now        uint64
}

type RemoveLiquidityResult struct {
	AmountA uint64 `json:"amount_a"`
	AmountB uint64 `json:"amount_b"`
	// Fees earned by the position up to the removal, paid alongside.
	FeeA            uint64 `json:"fee_a"`
	FeeB            uint64 `json:"fee_b"`
	RemainingShares uint64 `json:"remaining_shares"`
	Closed          bool   `json:"closed"`
}

// RemoveLiquidity burns shares from a position for a proportional cut of the
// reserves. Pending fees are settled before the share count drops. Removal
// stays open while the pool is paused.
func (p *Pool) RemoveLiquidity(req RemoveLiquidityRequest) (RemoveLiquidityResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.removeLiquidityLocked(req)
	if err != nil {
		p.logger.Debug("remove liquidity rejected", zap.String("op", "remove_liquidity"), zap.Error(err))
		return RemoveLiquidityResult{}, err
	}
	p.logger.Debug("remove liquidity",
		zap.String("op", "remove_liquidity"),
		zap.Stringer("position", req.PositionID),
		zap.Uint64("shares", req.Shares),
		zap.Uint64("amount_a", res.AmountA),
		zap.Uint64("amount_b", res.AmountB),
	)
	return res, nil
}

func (p *Pool) removeLiquidityLocked(req RemoveLiquidityRequest) (RemoveLiquidityResult, error) {
	if err := risk.CheckDeadline(req.Deadline, req.Now); err != nil {
		return RemoveLiquidityResult{}, err
	}
	if req.Shares == 0 {
		return RemoveLiquidityResult{}, ammerr.Wrapf(ammerr.ErrZeroAmount, "remove zero shares")
	}
	st := p.state
	pos, err := p.ownedPosition(req.PositionID, req.Owner)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	if req.Shares > pos.Shares {
		return RemoveLiquidityResult{}, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "remove %d of %d shares", req.Shares, pos.Shares)
	}

	var res RemoveLiquidityResult
	res.FeeA, res.FeeB, err = p.settle(&st, &pos)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}

	res.AmountA, res.AmountB, err = cpmm.BurnShares(req.Shares, st.ReserveA, st.ReserveB, st.TotalShares)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	if res.AmountA < req.MinA || res.AmountB < req.MinB {
		return RemoveLiquidityResult{}, ammerr.Wrapf(ammerr.ErrExcessiveSlippage,
			"removal yields %d/%d, minimum %d/%d", res.AmountA, res.AmountB, req.MinA, req.MinB)
	}

	st.ReserveA -= res.AmountA
	st.ReserveB -= res.AmountB
	st.TotalShares -= req.Shares
	pos.Shares -= req.Shares

	p.state = st
	p.commitPosition(pos)

	res.RemainingShares = pos.Shares
	res.Closed = pos.Shares == 0
	return res, nil
}

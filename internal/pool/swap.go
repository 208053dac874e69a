package pool

import (
	"math/big"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"ammcore/internal/ammerr"
	"ammcore/internal/cpmm"
	"ammcore/internal/fees"
	"ammcore/internal/risk"
	"ammcore/internal/stableswap"
)

type Direction string

const (
	AToB Direction = "a_to_b"
	BToA Direction = "b_to_a"
)

func (d Direction) Valid() bool {
	return d == AToB || d == BToA
}

type SwapRequest struct {
	AmountIn uint64
	MinOut   uint64
	// MaxPrice caps input paid per unit of output, scaled by 1e12. Nil disables it.
	MaxPrice *uint256.Int
	Deadline uint64
	Now      uint64
}

type SwapResult struct {
	Direction        Direction  `json:"direction"`
	AmountIn         uint64     `json:"amount_in"`
	AmountInAfterFee uint64     `json:"amount_in_after_fee"`
	AmountOut        uint64     `json:"amount_out"`
	Fee              fees.Split `json:"fee"`
	PriceImpactBps   uint64     `json:"price_impact_bps"`
}

func (p *Pool) SwapAToB(req SwapRequest) (SwapResult, error) {
	return p.Swap(AToB, req)
}

func (p *Pool) SwapBToA(req SwapRequest) (SwapResult, error) {
	return p.Swap(BToA, req)
}

// Swap trades AmountIn of the input asset for the output asset. Either every
// guard passes and the pool moves, or nothing changes.
func (p *Pool) Swap(dir Direction, req SwapRequest) (SwapResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.state
	res, err := priceSwap(st, dir, req, true)
	if err != nil {
		p.logger.Debug("swap rejected", zap.String("op", string(dir)), zap.Error(err))
		return SwapResult{}, err
	}
	if err := applySwap(&st, dir, res); err != nil {
		return SwapResult{}, err
	}
	p.state = st

	p.logger.Debug("swap",
		zap.String("op", string(dir)),
		zap.Uint64("amount_in", res.AmountIn),
		zap.Uint64("amount_out", res.AmountOut),
		zap.Uint64("fee", res.Fee.Total),
		zap.Uint64("impact_bps", res.PriceImpactBps),
	)
	return res, nil
}

// Quote prices a swap against the current state without the caller guards or
// any state change. Price impact is reported, not enforced.
func (p *Pool) Quote(dir Direction, amountIn, now uint64) (SwapResult, error) {
	p.mu.Lock()
	st := p.state
	p.mu.Unlock()

	return priceSwap(st, dir, SwapRequest{AmountIn: amountIn, Deadline: now, Now: now}, false)
}

func priceSwap(st State, dir Direction, req SwapRequest, enforce bool) (SwapResult, error) {
	if !dir.Valid() {
		return SwapResult{}, ammerr.Wrapf(ammerr.ErrInvalidParameter, "swap direction %q", dir)
	}
	g := st.guard()
	if enforce {
		if err := g.CheckActive(); err != nil {
			return SwapResult{}, err
		}
		if err := risk.CheckDeadline(req.Deadline, req.Now); err != nil {
			return SwapResult{}, err
		}
	}
	if req.AmountIn == 0 {
		return SwapResult{}, ammerr.Wrapf(ammerr.ErrZeroAmount, "swap amount")
	}
	rin, rout := st.reserves(dir)
	if rin == 0 || rout == 0 {
		return SwapResult{}, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "pool %s is empty", st.ID)
	}

	var (
		fee, afterFee, out uint64
		ideal              *big.Rat
	)
	switch st.Kind {
	case KindStable:
		amp := st.Ramp.Current(req.Now)
		q, err := stableswap.Swap(req.AmountIn, rin, rout, st.Fees.FeeBps, amp)
		if err != nil {
			return SwapResult{}, err
		}
		fee, afterFee, out = q.Fee, q.AmountInAfterFee, q.AmountOut
		ideal, err = stableswap.IdealOutput(afterFee, rin, rout, amp)
		if err != nil {
			return SwapResult{}, err
		}
	default:
		q, err := cpmm.Swap(req.AmountIn, rin, rout, st.Fees.FeeBps)
		if err != nil {
			return SwapResult{}, err
		}
		fee, afterFee, out = q.Fee, q.AmountInAfterFee, q.AmountOut
		ideal = new(big.Rat).SetFrac(
			new(big.Int).Mul(new(big.Int).SetUint64(afterFee), new(big.Int).SetUint64(rout)),
			new(big.Int).SetUint64(rin),
		)
	}

	if rin+afterFee < rin {
		return SwapResult{}, ammerr.Wrapf(ammerr.ErrOverflow, "reserve %d + %d", rin, afterFee)
	}
	split, err := st.Fees.SplitFee(fee)
	if err != nil {
		return SwapResult{}, err
	}
	res := SwapResult{
		Direction:        dir,
		AmountIn:         req.AmountIn,
		AmountInAfterFee: afterFee,
		AmountOut:        out,
		Fee:              split,
		PriceImpactBps:   risk.PriceImpactBps(ideal, out),
	}
	if !enforce {
		return res, nil
	}

	if out == 0 {
		return SwapResult{}, ammerr.Wrapf(ammerr.ErrZeroAmount, "swap of %d yields no output", req.AmountIn)
	}
	if err := risk.CheckMinOut(out, req.MinOut); err != nil {
		return SwapResult{}, err
	}
	if err := risk.CheckMaxPrice(req.AmountIn, out, req.MaxPrice); err != nil {
		return SwapResult{}, err
	}
	if err := g.CheckPriceImpact(ideal, out); err != nil {
		return SwapResult{}, err
	}
	return res, nil
}

// applySwap moves reserves and credits the fee split on st. LP fees accrue
// to the per-share accumulator on the input side.
func applySwap(st *State, dir Direction, res SwapResult) error {
	beforeA, beforeB := st.ReserveA, st.ReserveB
	if dir == AToB {
		st.ReserveA += res.AmountInAfterFee
		st.ReserveB -= res.AmountOut
		st.LPFeeA += res.Fee.LP
		st.ProtocolFeeA += res.Fee.Protocol
		st.CreatorFeeA += res.Fee.Creator
		if err := st.Acc.Accrue(res.Fee.LP, 0, st.TotalShares); err != nil {
			return err
		}
	} else {
		st.ReserveB += res.AmountInAfterFee
		st.ReserveA -= res.AmountOut
		st.LPFeeB += res.Fee.LP
		st.ProtocolFeeB += res.Fee.Protocol
		st.CreatorFeeB += res.Fee.Creator
		if err := st.Acc.Accrue(0, res.Fee.LP, st.TotalShares); err != nil {
			return err
		}
	}
	if st.Kind == KindConstantProduct {
		return cpmm.CheckK(beforeA, beforeB, st.ReserveA, st.ReserveB)
	}
	return nil
}

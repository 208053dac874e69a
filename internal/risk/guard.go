package risk

import (
	"math/big"

	"github.com/holiman/uint256"

	"ammcore/internal/ammerr"
	"ammcore/internal/fixedpoint"
)

const (
	DefaultMaxPriceImpactBps = 1_000
	DefaultRatioToleranceBps = 500
	DefaultMinCompoundFees   = 100
)

// Params are the per-pool risk limits. They change only through governance.
type Params struct {
	MaxPriceImpactBps uint64 `json:"max_price_impact_bps"`
	RatioToleranceBps uint64 `json:"ratio_tolerance_bps"`
	MinCompoundFees   uint64 `json:"min_compound_fees"`
}

func DefaultParams() Params {
	return Params{
		MaxPriceImpactBps: DefaultMaxPriceImpactBps,
		RatioToleranceBps: DefaultRatioToleranceBps,
		MinCompoundFees:   DefaultMinCompoundFees,
	}
}

func (p Params) Validate() error {
	if p.MaxPriceImpactBps > fixedpoint.BpsDenominator {
		return ammerr.Wrapf(ammerr.ErrInvalidParameter, "max price impact %d bps", p.MaxPriceImpactBps)
	}
	if p.RatioToleranceBps > fixedpoint.BpsDenominator {
		return ammerr.Wrapf(ammerr.ErrInvalidParameter, "ratio tolerance %d bps", p.RatioToleranceBps)
	}
	return nil
}

// Guard evaluates the caller and pool protections in front of every mutation.
type Guard struct {
	Params Params
	Paused bool
}

// CheckActive rejects value-moving operations while the pool is paused.
func (g Guard) CheckActive() error {
	if g.Paused {
		return ammerr.ErrPaused
	}
	return nil
}

// CheckDeadline accepts a request whose deadline is now or later.
func CheckDeadline(deadline, now uint64) error {
	if now > deadline {
		return ammerr.Wrapf(ammerr.ErrDeadlinePassed, "deadline %d, now %d", deadline, now)
	}
	return nil
}

// CheckMinOut enforces the caller's slippage floor.
func CheckMinOut(amountOut, minOut uint64) error {
	if amountOut < minOut {
		return ammerr.Wrapf(ammerr.ErrExcessiveSlippage, "output %d below minimum %d", amountOut, minOut)
	}
	return nil
}

// CheckMaxPrice enforces the caller's execution price ceiling. maxPrice is the
// most input paid per unit of output, scaled by fixedpoint.Precision. A nil
// ceiling disables the check.
func CheckMaxPrice(amountIn, amountOut uint64, maxPrice *uint256.Int) error {
	if maxPrice == nil {
		return nil
	}
	if amountOut == 0 {
		return ammerr.Wrapf(ammerr.ErrExcessiveSlippage, "zero output against max price %s", maxPrice.Dec())
	}
	paid := new(uint256.Int).Mul(uint256.NewInt(amountIn), uint256.NewInt(fixedpoint.Precision))
	allowed, overflow := new(uint256.Int).MulOverflow(maxPrice, uint256.NewInt(amountOut))
	if overflow {
		return nil
	}
	if paid.Gt(allowed) {
		return ammerr.Wrapf(ammerr.ErrExcessiveSlippage, "price %d/%d above max %s", amountIn, amountOut, maxPrice.Dec())
	}
	return nil
}

// PriceImpactBps is how far the actual output falls short of the ideal
// spot-price output, in basis points, rounded up.
func PriceImpactBps(ideal *big.Rat, actual uint64) uint64 {
	if ideal == nil || ideal.Sign() <= 0 {
		return 0
	}
	act := new(big.Rat).SetInt(new(big.Int).SetUint64(actual))
	if act.Cmp(ideal) >= 0 {
		return 0
	}
	shortfall := new(big.Rat).Sub(ideal, act)
	shortfall.Mul(shortfall, big.NewRat(fixedpoint.BpsDenominator, 1))
	shortfall.Quo(shortfall, ideal)

	q, r := new(big.Int).QuoRem(shortfall.Num(), shortfall.Denom(), new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsUint64() {
		return fixedpoint.BpsDenominator
	}
	return q.Uint64()
}

// CheckPriceImpact rejects trades that move the price beyond the pool limit.
func (g Guard) CheckPriceImpact(ideal *big.Rat, actual uint64) error {
	impact := PriceImpactBps(ideal, actual)
	if impact > g.Params.MaxPriceImpactBps {
		return ammerr.Wrapf(ammerr.ErrExcessivePriceImpact, "impact %d bps above %d", impact, g.Params.MaxPriceImpactBps)
	}
	return nil
}

// RatioDeviationBps measures how far a deposit's ratio a/b strays from the
// pool's ratio reserveA/reserveB, in basis points of the pool ratio.
func RatioDeviationBps(amountA, amountB, reserveA, reserveB uint64) (uint64, error) {
	if amountB == 0 || reserveA == 0 {
		return 0, ammerr.Wrapf(ammerr.ErrZeroAmount, "ratio of %d/%d against %d/%d", amountA, amountB, reserveA, reserveB)
	}
	lhs := fixedpoint.Product(amountA, reserveB)
	rhs := fixedpoint.Product(amountB, reserveA)
	diff := new(uint256.Int)
	if lhs.Gt(rhs) {
		diff.Sub(lhs, rhs)
	} else {
		diff.Sub(rhs, lhs)
	}
	bps := fixedpoint.MulDivWide(diff, uint256.NewInt(fixedpoint.BpsDenominator), rhs)
	if !bps.IsUint64() {
		return ^uint64(0), nil
	}
	return bps.Uint64(), nil
}

// CheckRatio rejects deposits into a funded pool that deviate from the pool
// ratio by more than the tolerance.
func (g Guard) CheckRatio(amountA, amountB, reserveA, reserveB uint64) error {
	if reserveA == 0 && reserveB == 0 {
		return nil
	}
	dev, err := RatioDeviationBps(amountA, amountB, reserveA, reserveB)
	if err != nil {
		return err
	}
	if dev > g.Params.RatioToleranceBps {
		return ammerr.Wrapf(ammerr.ErrRatioOutOfTolerance, "deviation %d bps above %d", dev, g.Params.RatioToleranceBps)
	}
	return nil
}
